package certrotate

import (
	"time"
)

// CertificateRecord is the canonical view of the local leaf certificate.
// It is built once per run by ParseCertificate and never mutated afterwards.
type CertificateRecord struct {
	Fingerprint   string    // Uppercase hex SHA-1 of the leaf DER bytes
	ExpiresAt     time.Time // UTC
	PrimaryDomain string    // Subject CN, or the first SAN when there is no CN
	Domains       []string  // SAN DNS names plus CN, ordered and deduplicated
}

// ManagedCertificate is a certificate as tracked by the remote registry.
type ManagedCertificate struct {
	ID            string
	Alias         string // Holds the local fingerprint for certificates uploaded by us
	PrimaryDomain string
	Domains       []string
	ExpiresAt     time.Time // UTC, zero when the registry did not report it
}

// BoundDomain is a CDN hostname with its own TLS configuration.
type BoundDomain struct {
	Hostname      string
	TLSEnabled    bool
	CertificateID string // Currently bound certificate, empty if unknown
}

// DomainFilter narrows the CDN domain listing.
type DomainFilter struct {
	HostnameFuzzy string
	TLSEnabled    bool
}

// BindOptions is the TLS configuration written to a CDN domain together
// with the certificate id.
type BindOptions struct {
	HTTP2        bool
	OCSPStapling bool
	HSTSMaxAge   time.Duration
	Note         string
}

// Bundle is a certificate chain and its private key, both PEM encoded.
type Bundle struct {
	CertificateChain string
	PrivateKey       string
}
