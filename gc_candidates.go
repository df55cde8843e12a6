package gatequeue

import (
	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/quota"
)

// gcCandidates builds the garbage-collection candidate list for service:
// every in-memory job belonging to it whose state is terminal and whose
// output directory exists, aged by the time since that output directory
// was last modified.
func (m *JobManager) gcCandidates(service string) []quota.Candidate {
	var candidates []quota.Candidate
	for _, j := range m.snapshotJobs() {
		if j.Service != service {
			continue
		}
		if !job.IsTerminal(j.State()) {
			continue
		}
		if !m.gate.OutputExists(j.ID) {
			continue
		}
		age, err := m.gate.AgeOf(m.gate.OutputDir(), j.ID)
		if err != nil {
			continue
		}
		candidates = append(candidates, quota.Candidate{ID: j.ID, Age: age})
	}
	return candidates
}
