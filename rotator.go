package certrotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/caasmo/restinpieces/db"
	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/google/uuid"
)

// HSTSMaxAge is the Strict-Transport-Security max-age written on rebind.
const HSTSMaxAge = 365 * 24 * time.Hour

const noteTimeLayout = "2006-01-02 15:04:05 MST"

// Rebind notes are stamped in China Standard Time, the zone the registry
// reports its timestamps in.
var noteZone = time.FixedZone("CST", 8*60*60)

// Option configures a Rotator.
type Option func(*Rotator)

// WithClock sets the time provider (mainly for testing).
func WithClock(clock func() time.Time) Option {
	return func(r *Rotator) { r.clock = clock }
}

// WithDryRun makes the rotator read remote state only. Uploads, rebinds
// and deletions are recorded in the Report as planned.
func WithDryRun(dryRun bool) Option {
	return func(r *Rotator) { r.dryRun = dryRun }
}

// WithSource sets where Handle loads the bundle from.
func WithSource(source Source) Option {
	return func(r *Rotator) { r.source = source }
}

// Rotator runs the certificate rotation workflow.
type Rotator struct {
	registry Registry
	binder   Binder
	source   Source
	clock    func() time.Time
	dryRun   bool
	logger   *slog.Logger
}

// NewRotator creates a rotator. It requires a registry, a binder and a logger.
func NewRotator(registry Registry, binder Binder, logger *slog.Logger, opts ...Option) *Rotator {
	if registry == nil || binder == nil || logger == nil {
		panic("NewRotator: received nil registry, binder, or logger")
	}
	r := &Rotator{
		registry: registry,
		binder:   binder,
		clock:    time.Now,
		logger:   logger.With("job_handler", "cert_rotation"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle executes a rotation as a restinpieces job, loading the bundle
// from the configured Source.
func (r *Rotator) Handle(ctx context.Context, job db.Job) error {
	if r.source == nil {
		return errors.New("certrotate: no bundle source configured")
	}
	r.logger.Info("Starting certificate rotation job", "job_id", job.ID)

	bundle, err := r.source.Load(ctx)
	if err != nil {
		r.logger.Error("Failed to load certificate bundle", "job_id", job.ID, "error", err)
		return err
	}

	report, err := r.Rotate(ctx, bundle)
	if err != nil {
		return err
	}
	r.logger.Info("Certificate rotation job finished", "job_id", job.ID, "run_id", report.RunID, "failures", report.Failures())
	return nil
}

// rotation is the record threaded through the steps. Each step returns
// the updated copy.
type rotation struct {
	log      *slog.Logger
	bundle   Bundle
	record   *CertificateRecord
	existing []ManagedCertificate // Search result, nil when the search failed
	active   ManagedCertificate
	domains  []BoundDomain
}

type step struct {
	to  State
	run func(ctx context.Context, rot rotation, report *Report) (rotation, error)
}

// Rotate runs parse, reconcile, discover, rebind and retire in order.
// It returns an error only for fatal failures; the report is returned in
// both cases and holds the state reached.
func (r *Rotator) Rotate(ctx context.Context, bundle Bundle) (*Report, error) {
	runID := uuid.NewString()
	report := &Report{RunID: runID, State: StateLoaded, DryRun: r.dryRun}
	rot := rotation{log: r.logger.With("run_id", runID), bundle: bundle}

	steps := []step{
		{StateParsed, r.parse},
		{StateReconciled, r.reconcile},
		{StateDomainsDiscovered, r.discover},
		{StateRebound, r.rebind},
		{StateRetired, r.retire},
	}
	for _, s := range steps {
		var err error
		if rot, err = s.run(ctx, rot, report); err != nil {
			rot.log.Error("Certificate rotation aborted", "state", report.State, "error", err)
			return report, err
		}
		report.State = s.to
	}
	report.State = StateDone

	rot.log.Info("Certificate rotation finished",
		"certificate_id", report.Certificate.ID,
		"uploaded", report.Uploaded,
		"rebound", len(report.Bindings),
		"retired", len(report.Retirements),
		"failures", report.Failures(),
		"dry_run", r.dryRun)
	return report, nil
}

func (r *Rotator) parse(_ context.Context, rot rotation, report *Report) (rotation, error) {
	now := r.clock()
	record, err := ParseCertificate(rot.bundle.CertificateChain, now)
	if err != nil {
		return rot, err
	}
	if _, err := certcrypto.ParsePEMPrivateKey([]byte(rot.bundle.PrivateKey)); err != nil {
		return rot, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}

	rot.log.Info("Certificate parsed",
		"domain", record.PrimaryDomain,
		"sans", record.Domains,
		"fingerprint", record.Fingerprint,
		"expires_at", record.ExpiresAt.Format(time.RFC3339),
		"days_remaining", record.DaysRemaining(now))

	rot.record = record
	report.Record = record
	return rot, nil
}

func (r *Rotator) reconcile(ctx context.Context, rot rotation, report *Report) (rotation, error) {
	record := rot.record

	existing, err := r.registry.Search(ctx, record.PrimaryDomain)
	if err != nil {
		rot.log.Warn("Failed to list certificates, a new certificate will be uploaded", "search_key", record.PrimaryDomain, "error", err)
		report.degrade(StepSearch, err)
	}
	rot.existing = existing

	var id string
	for _, c := range existing {
		if c.Alias == record.Fingerprint {
			id = c.ID
			break
		}
	}

	switch {
	case id != "":
		rot.log.Info("Found matching certificate", "certificate_id", id)
	case r.dryRun:
		rot.log.Info("Dry run: certificate would be uploaded", "alias", record.Fingerprint)
		rot.active = localCertificate(record)
		report.Certificate = rot.active
		return rot, nil
	default:
		id, err = r.registry.Upload(ctx, rot.bundle.CertificateChain, rot.bundle.PrivateKey, record.Fingerprint)
		if err == nil && id == "" {
			err = errors.New("registry returned no certificate id")
		}
		if err != nil {
			return rot, fmt.Errorf("%w: %w", ErrUpload, err)
		}
		rot.log.Info("Uploaded new certificate", "certificate_id", id)
		report.Uploaded = true
	}

	detail, err := r.registry.Describe(ctx, id)
	if err != nil {
		rot.log.Warn("Failed to describe certificate, using local certificate details", "certificate_id", id, "error", err)
		report.degrade(StepDescribe, err)
		// Expiry stays unknown so nothing is retired on a stand-in.
		detail = ManagedCertificate{
			ID:            id,
			Alias:         record.Fingerprint,
			PrimaryDomain: record.PrimaryDomain,
			Domains:       record.Domains,
		}
	}
	if detail.ID == "" {
		detail.ID = id
	}
	if len(detail.Domains) == 0 {
		detail.Domains = []string{record.PrimaryDomain}
	}

	rot.active = detail
	report.Certificate = detail
	return rot, nil
}

// localCertificate stands in for a certificate a dry run would upload.
func localCertificate(record *CertificateRecord) ManagedCertificate {
	return ManagedCertificate{
		Alias:         record.Fingerprint,
		PrimaryDomain: record.PrimaryDomain,
		Domains:       record.Domains,
		ExpiresAt:     record.ExpiresAt,
	}
}

func (r *Rotator) discover(ctx context.Context, rot rotation, report *Report) (rotation, error) {
	filter := DomainFilter{HostnameFuzzy: rot.record.PrimaryDomain, TLSEnabled: true}
	domains, err := r.binder.ListDomains(ctx, filter)
	if err != nil {
		rot.log.Warn("Failed to list CDN domains", "filter", filter.HostnameFuzzy, "error", err)
		report.degrade(StepDiscover, err)
		domains = nil
	}
	rot.log.Debug("Discovered CDN domains", "count", len(domains))
	rot.domains = domains
	return rot, nil
}

func (r *Rotator) rebind(ctx context.Context, rot rotation, report *Report) (rotation, error) {
	opts := BindOptions{
		HTTP2:        true,
		OCSPStapling: true,
		HSTSMaxAge:   HSTSMaxAge,
		Note:         "updated at " + r.clock().In(noteZone).Format(noteTimeLayout),
	}

	for _, d := range rot.domains {
		if !MatchHostname(d.Hostname, rot.active.Domains) {
			rot.log.Debug("Domain not covered by certificate", "domain", d.Hostname)
			continue
		}

		item := ItemResult{Target: d.Hostname}
		switch {
		case r.dryRun:
			item.Planned = true
			rot.log.Info("Dry run: domain certificate would be updated", "domain", d.Hostname)
		default:
			if err := r.binder.BindTLS(ctx, d.Hostname, rot.active.ID, opts); err != nil {
				item.Err = err
				rot.log.Error("Failed to update domain certificate", "domain", d.Hostname, "certificate_id", rot.active.ID, "error", err)
			} else {
				rot.log.Info("Updated domain certificate", "domain", d.Hostname, "certificate_id", rot.active.ID)
			}
		}
		report.Bindings = append(report.Bindings, item)
	}
	return rot, nil
}

func (r *Rotator) retire(ctx context.Context, rot rotation, report *Report) (rotation, error) {
	superseded := SelectSuperseded(rot.existing, rot.record, rot.active)
	if len(superseded) == 0 {
		rot.log.Info("No superseded certificates to delete", "active_expires_at", rot.active.ExpiresAt.Format(time.RFC3339))
		return rot, nil
	}

	// Live references are not checked first; the registry rejects deleting
	// a certificate still bound to a resource.
	for _, c := range superseded {
		item := ItemResult{Target: c.ID}
		switch {
		case r.dryRun:
			item.Planned = true
			rot.log.Info("Dry run: certificate would be deleted", "certificate_id", c.ID, "domain", c.PrimaryDomain)
		default:
			if err := r.registry.Delete(ctx, c.ID); err != nil {
				item.Err = err
				rot.log.Error("Failed to delete certificate", "certificate_id", c.ID, "error", err)
			} else {
				rot.log.Info("Deleted certificate", "certificate_id", c.ID, "domain", c.PrimaryDomain)
			}
		}
		report.Retirements = append(report.Retirements, item)
	}
	return rot, nil
}

// SelectSuperseded picks the existing certificates that the active one
// replaces: a different id, an expiry not after the active one, the same
// primary domain and exactly the same domain set as the local record.
// Entries with an unknown expiry are kept.
func SelectSuperseded(existing []ManagedCertificate, record *CertificateRecord, active ManagedCertificate) []ManagedCertificate {
	if record == nil || active.ExpiresAt.IsZero() {
		return nil
	}
	var out []ManagedCertificate
	for _, c := range existing {
		if c.ID == active.ID || c.ExpiresAt.IsZero() || c.ExpiresAt.After(active.ExpiresAt) {
			continue
		}
		if c.PrimaryDomain != record.PrimaryDomain || !sameDomainSet(c.Domains, record.Domains) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func sameDomainSet(a, b []string) bool {
	return slices.Equal(normalizedSet(a), normalizedSet(b))
}

func normalizedSet(domains []string) []string {
	s := slices.Clone(domains)
	slices.Sort(s)
	return slices.Compact(s)
}
