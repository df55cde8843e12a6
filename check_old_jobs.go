package gatequeue

import (
	"time"

	"github.com/cisgate/gatequeue/job"
)

// checkOldJobs applies each service's two aging rules to every in-memory
// job it owns. MaxLifetime bounds how long a terminal job's reference
// path may live before it is marked for deletion; MaxRuntime bounds how
// long a job may stay Running before the same happens. Either rule is
// disabled by a zero Config value. Ageing only ever marks a job via
// MarkDelete; the actual removal is checkDeletedJobs's job, on a later
// tick, giving a grace window a still-running du or scheduler poll can
// finish inside.
func (m *JobManager) checkOldJobs() {
	for _, j := range m.snapshotJobs() {
		svc, err := m.registry.Get(j.Service)
		if err != nil {
			continue
		}

		state := j.State()
		switch state {
		case job.Done, job.Failed:
			m.ageOut(j, svc.Config.MaxLifetime, m.gate.OutputDir())
		case job.Killed, job.Aborted:
			ref := m.gate.OutputDir()
			if !m.gate.OutputExists(j.ID) {
				ref = m.gate.JobsDir()
			}
			m.ageOut(j, svc.Config.MaxLifetime, ref)
		case job.Running:
			m.ageOut(j, svc.Config.MaxRuntime, m.gate.StateDir("running"))
		}
	}
}

func (m *JobManager) ageOut(j *job.Job, limit time.Duration, dir string) {
	if limit == 0 {
		return
	}
	age, err := m.gate.AgeOf(dir, j.ID)
	if err != nil {
		return
	}
	if age < limit {
		return
	}
	if err := j.MarkDelete(); err != nil {
		m.log.Error("check_old_jobs: mark delete failed", "id", j.ID, "err", err)
	}
}
