package gatefs

import (
	"fmt"

	"github.com/cisgate/gatequeue/job"
)

// JobSummary is the read-only view of a job's gate-visible state exposed
// to the admin surface, without needing the in-memory Job or its schema
// package dependency.
type JobSummary struct {
	ID    string
	State job.State
}

// Observer lists and inspects jobs directly from the gate, independent of
// JobManager's in-memory index. It is used by the admin HTTP surface,
// which must keep working even if it is wired up against a gate whose
// daemon is temporarily unreachable.
type Observer struct {
	gate *Gate
}

// NewObserver wraps gate for read-only inspection.
func NewObserver(gate *Gate) *Observer {
	return &Observer{gate: gate}
}

// List returns a JobSummary for every job currently present under jobs/.
func (o *Observer) List() ([]JobSummary, error) {
	ids, err := o.gate.ListJobIDs()
	if err != nil {
		return nil, err
	}
	out := make([]JobSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, JobSummary{ID: id, State: o.gate.CheckState(id)})
	}
	return out, nil
}

// Get returns a single job's summary, or ErrNotFound if it has no request
// body under jobs/.
func (o *Observer) Get(id string) (JobSummary, error) {
	if _, err := o.gate.ReadBody(id); err != nil {
		return JobSummary{}, fmt.Errorf("gatefs: observe %s: %w", id, err)
	}
	return JobSummary{ID: id, State: o.gate.CheckState(id)}, nil
}
