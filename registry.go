package certrotate

import "context"

// Registry is the managed-certificate service.
type Registry interface {
	// Search returns the certificates whose search key fuzzy-matches key.
	Search(ctx context.Context, key string) ([]ManagedCertificate, error)
	// Upload registers a certificate and its key, tagging it with alias.
	// It returns the id assigned by the registry.
	Upload(ctx context.Context, certPEM, keyPEM, alias string) (string, error)
	// Describe fetches the full detail of one certificate.
	Describe(ctx context.Context, id string) (ManagedCertificate, error)
	// Delete removes a certificate. The registry rejects the call while a
	// resource still references the certificate.
	Delete(ctx context.Context, id string) error
}

// Binder is the CDN configuration service.
type Binder interface {
	ListDomains(ctx context.Context, filter DomainFilter) ([]BoundDomain, error)
	BindTLS(ctx context.Context, hostname, certificateID string, opts BindOptions) error
}

// Source loads the certificate bundle a run starts from.
type Source interface {
	Load(ctx context.Context) (Bundle, error)
}
