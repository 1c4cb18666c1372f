package tencent

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/caasmo/restinpieces-certrotate"
)

// Binder implements certrotate.Binder with the CDN API.
type Binder struct {
	caller Caller
}

var _ certrotate.Binder = (*Binder)(nil)

// NewBinder creates a binder client for the CDN API.
func NewBinder(opts Options) *Binder {
	return &Binder{caller: newSDKCaller(opts, cdnService, cdnVersion, opts.CDNEndpoint)}
}

type domainFilter struct {
	Name  string   `json:"Name"`
	Value []string `json:"Value"`
	Fuzzy bool     `json:"Fuzzy,omitempty"`
}

type describeDomainsRequest struct {
	Limit   int            `json:"Limit"`
	Filters []domainFilter `json:"Filters"`
}

type briefDomain struct {
	Domain string `json:"Domain"`
}

type describeDomainsResponse struct {
	Domains    []briefDomain `json:"Domains"`
	TotalCount int           `json:"TotalCount"`
}

// ListDomains returns the CDN domains whose name contains
// filter.HostnameFuzzy and whose HTTPS switch matches filter.TLSEnabled.
func (b *Binder) ListDomains(ctx context.Context, filter certrotate.DomainFilter) ([]certrotate.BoundDomain, error) {
	body, err := b.caller.Call(ctx, "DescribeDomains", describeDomainsRequest{
		Limit: listLimit,
		Filters: []domainFilter{
			{Name: "domain", Value: []string{filter.HostnameFuzzy}, Fuzzy: true},
			{Name: "https", Value: []string{onOff(filter.TLSEnabled)}},
		},
	})
	if err != nil {
		return nil, err
	}

	var resp describeDomainsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("DescribeDomains: decode: %w", err)
	}

	out := make([]certrotate.BoundDomain, 0, len(resp.Domains))
	for _, d := range resp.Domains {
		out = append(out, certrotate.BoundDomain{Hostname: d.Domain, TLSEnabled: filter.TLSEnabled})
	}
	return out, nil
}

type hsts struct {
	Switch string `json:"Switch"`
	MaxAge int64  `json:"MaxAge"`
}

type serverCert struct {
	CertID  string `json:"CertId"`
	Message string `json:"Message,omitempty"`
}

type https struct {
	Switch       string     `json:"Switch"`
	Http2        string     `json:"Http2"`
	OcspStapling string     `json:"OcspStapling"`
	Hsts         hsts       `json:"Hsts"`
	CertInfo     serverCert `json:"CertInfo"`
}

type updateDomainConfigRequest struct {
	Domain string `json:"Domain"`
	Https  https  `json:"Https"`
}

// BindTLS turns HTTPS on for hostname and points it at certificateID.
func (b *Binder) BindTLS(ctx context.Context, hostname, certificateID string, opts certrotate.BindOptions) error {
	_, err := b.caller.Call(ctx, "UpdateDomainConfig", updateDomainConfigRequest{
		Domain: hostname,
		Https: https{
			Switch:       "on",
			Http2:        onOff(opts.HTTP2),
			OcspStapling: onOff(opts.OCSPStapling),
			Hsts: hsts{
				Switch: onOff(opts.HSTSMaxAge > 0),
				MaxAge: int64(opts.HSTSMaxAge.Seconds()),
			},
			CertInfo: serverCert{CertID: certificateID, Message: opts.Note},
		},
	})
	return err
}
