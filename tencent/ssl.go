package tencent

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/caasmo/restinpieces-certrotate"
)

// Registry implements certrotate.Registry with the SSL certificate API.
type Registry struct {
	caller Caller
}

var _ certrotate.Registry = (*Registry)(nil)

// NewRegistry creates a registry client for the SSL certificate API.
func NewRegistry(opts Options) *Registry {
	return &Registry{caller: newSDKCaller(opts, sslService, sslVersion, opts.SSLEndpoint)}
}

type sslCertificate struct {
	CertificateID  string   `json:"CertificateId"`
	Alias          string   `json:"Alias"`
	Domain         string   `json:"Domain"`
	SubjectAltName []string `json:"SubjectAltName"`
	CertEndTime    string   `json:"CertEndTime"`
}

func (c sslCertificate) managed() certrotate.ManagedCertificate {
	return certrotate.ManagedCertificate{
		ID:            c.CertificateID,
		Alias:         c.Alias,
		PrimaryDomain: c.Domain,
		Domains:       c.SubjectAltName,
		ExpiresAt:     parseTime(c.CertEndTime),
	}
}

type describeCertificatesRequest struct {
	SearchKey      string `json:"SearchKey"`
	ExpirationSort string `json:"ExpirationSort"`
	FilterSource   string `json:"FilterSource"`
	Limit          int    `json:"Limit"`
}

type describeCertificatesResponse struct {
	Certificates []sslCertificate `json:"Certificates"`
	TotalCount   int              `json:"TotalCount"`
}

// Search lists uploaded certificates matching key, latest expiry first.
func (r *Registry) Search(ctx context.Context, key string) ([]certrotate.ManagedCertificate, error) {
	body, err := r.caller.Call(ctx, "DescribeCertificates", describeCertificatesRequest{
		SearchKey:      key,
		ExpirationSort: "DESC",
		FilterSource:   "upload",
		Limit:          listLimit,
	})
	if err != nil {
		return nil, err
	}

	var resp describeCertificatesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("DescribeCertificates: decode: %w", err)
	}

	out := make([]certrotate.ManagedCertificate, 0, len(resp.Certificates))
	for _, c := range resp.Certificates {
		out = append(out, c.managed())
	}
	return out, nil
}

type uploadCertificateRequest struct {
	CertificatePublicKey  string `json:"CertificatePublicKey"`
	CertificatePrivateKey string `json:"CertificatePrivateKey"`
	Alias                 string `json:"Alias"`
}

type uploadCertificateResponse struct {
	CertificateID string `json:"CertificateId"`
}

// Upload registers the chain and key. The alias is stored as the
// certificate's remark, which Search returns as Alias.
func (r *Registry) Upload(ctx context.Context, certPEM, keyPEM, alias string) (string, error) {
	body, err := r.caller.Call(ctx, "UploadCertificate", uploadCertificateRequest{
		CertificatePublicKey:  certPEM,
		CertificatePrivateKey: keyPEM,
		Alias:                 alias,
	})
	if err != nil {
		return "", err
	}

	var resp uploadCertificateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("UploadCertificate: decode: %w", err)
	}
	return resp.CertificateID, nil
}

type certificateIDRequest struct {
	CertificateID string `json:"CertificateId"`
}

func (r *Registry) Describe(ctx context.Context, id string) (certrotate.ManagedCertificate, error) {
	body, err := r.caller.Call(ctx, "DescribeCertificate", certificateIDRequest{CertificateID: id})
	if err != nil {
		return certrotate.ManagedCertificate{}, err
	}

	var resp sslCertificate
	if err := json.Unmarshal(body, &resp); err != nil {
		return certrotate.ManagedCertificate{}, fmt.Errorf("DescribeCertificate: decode: %w", err)
	}
	return resp.managed(), nil
}

type deleteCertificateResponse struct {
	DeleteResult bool `json:"DeleteResult"`
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	body, err := r.caller.Call(ctx, "DeleteCertificate", certificateIDRequest{CertificateID: id})
	if err != nil {
		return err
	}

	var resp deleteCertificateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("DeleteCertificate: decode: %w", err)
	}
	if !resp.DeleteResult {
		return errors.New("DeleteCertificate: certificate was not deleted")
	}
	return nil
}
