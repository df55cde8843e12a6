package gatequeue

import (
	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/request"
)

// getJob returns the in-memory Job for id, creating it from jobs/<id> and
// the gate's current state symlinks if create is true and no such Job
// exists yet. Re-entry for an id already tracked returns the existing
// object, making the whole operation idempotent across ticks.
func (m *JobManager) getJob(id string, create bool) (*job.Job, bool) {
	m.mu.Lock()
	if j, ok := m.jobs[id]; ok {
		m.mu.Unlock()
		return j, true
	}
	m.mu.Unlock()

	if !create {
		return nil, false
	}

	body, err := m.gate.ReadBody(id)
	if err != nil {
		m.log.Error("get_job: read body failed", "id", id, "err", err)
		return nil, false
	}

	j := job.New(id, m.gate)
	j.Data = body
	j.SetProbedState(m.gate.CheckState(id))

	if rec, err := m.gate.ReadOpts(id); err == nil {
		j.LoadExit(rec)
	}

	if name, ok := request.Body{Data: body}.Service(); ok {
		j.Service = name
	}

	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()
	return j, true
}

// forgetJob drops id from the in-memory index. Callers must have already
// told the registry to stop accounting for it.
func (m *JobManager) forgetJob(id string) {
	m.mu.Lock()
	delete(m.jobs, id)
	m.mu.Unlock()
}

// snapshotJobs returns a stable copy of the in-memory index's values,
// safe to range over while other goroutines (cleanup workers) mutate
// individual Jobs concurrently.
func (m *JobManager) snapshotJobs() []*job.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}
