package certrotate

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
)

const pemCertificateHeader = "-----BEGIN CERTIFICATE-----"

// ParseCertificate builds the CertificateRecord for the leaf (first)
// certificate of a PEM bundle. The leaf must still be valid at now.
func ParseCertificate(pemBundle string, now time.Time) (*CertificateRecord, error) {
	if strings.TrimSpace(pemBundle) == "" {
		return nil, fmt.Errorf("%w: certificate content is empty", ErrInvalidInput)
	}
	start := strings.Index(pemBundle, pemCertificateHeader)
	if start < 0 {
		return nil, fmt.Errorf("%w: no certificate block found", ErrInvalidInput)
	}

	// Only the leaf block is decoded. The rest of the chain is passed
	// through to the registry as is.
	leaf, err := certcrypto.ParsePEMCertificate([]byte(pemBundle[start:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCertificate, err)
	}

	expiresAt := leaf.NotAfter.UTC()
	if remaining := expiresAt.Sub(now); remaining <= 0 {
		return nil, &ExpiredCertificateError{Days: wholeDays(remaining)}
	}

	sum := sha1.Sum(leaf.Raw)
	fingerprint := strings.ToUpper(hex.EncodeToString(sum[:]))

	domains := make([]string, 0, len(leaf.DNSNames)+1)
	for _, name := range leaf.DNSNames {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(domains, name) {
			continue
		}
		domains = append(domains, name)
	}

	// The CN value stops at the first comma, as in an RDN sequence.
	cn, _, _ := strings.Cut(leaf.Subject.CommonName, ",")
	cn = strings.TrimSpace(cn)
	if cn != "" && !slices.Contains(domains, cn) {
		domains = append(domains, cn)
	}

	if len(domains) == 0 {
		return nil, ErrNoDomainsFound
	}

	primary := cn
	if primary == "" {
		primary = domains[0]
	}

	return &CertificateRecord{
		Fingerprint:   fingerprint,
		ExpiresAt:     expiresAt,
		PrimaryDomain: primary,
		Domains:       domains,
	}, nil
}

// DaysRemaining returns the whole days left until the record expires.
func (r *CertificateRecord) DaysRemaining(now time.Time) int {
	return wholeDays(r.ExpiresAt.Sub(now))
}

func wholeDays(d time.Duration) int {
	return int(math.Floor(math.Abs(d.Hours()) / 24))
}
