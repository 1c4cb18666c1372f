package certrotate

// State is a stage of the rotation state machine.
type State string

const (
	StateLoaded            State = "loaded"
	StateParsed            State = "parsed"
	StateReconciled        State = "reconciled"
	StateDomainsDiscovered State = "domains_discovered"
	StateRebound           State = "rebound"
	StateRetired           State = "retired"
	StateDone              State = "done"
)

// Names of the steps that may degrade instead of aborting.
const (
	StepSearch   = "search"
	StepDescribe = "describe"
	StepDiscover = "discover"
)

// StepResult records a step that failed and was continued with reduced
// information.
type StepResult struct {
	Step string
	Err  error
}

// ItemResult is the outcome of one per-item remote call: a domain rebind
// or a certificate deletion.
type ItemResult struct {
	Target  string // Hostname or certificate id
	Planned bool   // Dry run, the call was not issued
	Err     error
}

// Report is the observable result of one run. Partial failures never make
// Rotate return an error; they are only visible here and in the logs.
type Report struct {
	RunID       string
	State       State
	DryRun      bool
	Record      *CertificateRecord
	Certificate ManagedCertificate
	Uploaded    bool
	Degraded    []StepResult
	Bindings    []ItemResult
	Retirements []ItemResult
}

// Failures counts the per-item calls that failed.
func (r *Report) Failures() int {
	n := 0
	for _, items := range [][]ItemResult{r.Bindings, r.Retirements} {
		for _, item := range items {
			if item.Err != nil {
				n++
			}
		}
	}
	return n
}

func (r *Report) degrade(step string, err error) {
	r.Degraded = append(r.Degraded, StepResult{Step: step, Err: err})
}
