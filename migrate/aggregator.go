package migrate

import (
	"time"

	"github.com/teranos/ngmigrate/cg"
)

// Aggregator accumulates per-entity outcomes. Recording a failure never
// stops the run; it only clears Success.
type Aggregator struct {
	success bool
	errors  []ImportError
	skips   []SkipDetail
}

// NewAggregator starts from success.
func NewAggregator() *Aggregator {
	return &Aggregator{success: true}
}

// Add folds one entity summary in.
func (a *Aggregator) Add(s Summary) {
	a.success = a.success && s.Success && len(s.Errors) == 0
	a.errors = append(a.errors, s.Errors...)
	a.skips = append(a.skips, s.Skips...)
}

// Error records a failure.
func (a *Aggregator) Error(e ImportError) {
	a.Add(Failed(e))
}

// Skip records a deliberate non-migration.
func (a *Aggregator) Skip(reason string, ref cg.EntityRef) {
	a.Add(Summary{Success: true, Skips: []SkipDetail{{Reason: reason, Origin: ref, Type: ref.Type}}})
}

// Summary returns the accumulated outcome. Slices are never nil.
func (a *Aggregator) Summary() Summary {
	return Summary{
		Success: a.success,
		Errors:  append([]ImportError{}, a.errors...),
		Skips:   append([]SkipDetail{}, a.skips...),
	}
}

// MigratedEntity is one ledger entry of a run in the report.
type MigratedEntity struct {
	MappingRecord
	AlreadyExisted bool `json:"alreadyExisted"`
}

// Report is the final outcome of a run.
type Report struct {
	RunID      string           `json:"runId"`
	Root       cg.EntityRef     `json:"root"`
	Success    bool             `json:"success"`
	Aborted    bool             `json:"aborted"`
	DryRun     bool             `json:"dryRun"`
	Errors     []ImportError    `json:"errors"`
	Skips      []SkipDetail     `json:"skips"`
	Migrated   []MigratedEntity `json:"migrated"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
}

// Summary is the report without run metadata.
func (r *Report) Summary() Summary {
	return Summary{Success: r.Success, Errors: r.Errors, Skips: r.Skips}
}
