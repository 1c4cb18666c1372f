package certrotate

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("certrotate: invalid certificate input")
	ErrMalformedCertificate = errors.New("certrotate: malformed certificate")
	ErrMalformedKey         = errors.New("certrotate: malformed private key")
	ErrNoDomainsFound       = errors.New("certrotate: no domains found in certificate")
	ErrPathNotFound         = errors.New("certrotate: certificate path not found")
	ErrFileRead             = errors.New("certrotate: failed to read certificate files")
	ErrUpload               = errors.New("certrotate: certificate upload failed")
	ErrMissingConfig        = errors.New("certrotate: missing required configuration")
)

// ExpiredCertificateError is returned when the input leaf certificate is
// already expired. Days is the number of whole days since expiry.
type ExpiredCertificateError struct {
	Days int
}

func (e *ExpiredCertificateError) Error() string {
	return fmt.Sprintf("certrotate: certificate expired %d days ago, choose a valid certificate bundle", e.Days)
}

// IsFatal reports whether err aborts a rotation run. Everything else a
// component returns is handled at the call site and recorded in the Report.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var expired *ExpiredCertificateError
	if errors.As(err, &expired) {
		return true
	}
	for _, fatal := range []error{
		ErrInvalidInput,
		ErrMalformedCertificate,
		ErrMalformedKey,
		ErrNoDomainsFound,
		ErrPathNotFound,
		ErrFileRead,
		ErrUpload,
		ErrMissingConfig,
	} {
		if errors.Is(err, fatal) {
			return true
		}
	}
	return false
}
