package gatequeue

import (
	"context"

	"github.com/cisgate/gatequeue/job"
)

// checkDeletedJobs services every delete/<id> mark. A job still live is
// asked to stop first, with a Delete exit code distinguishing it from a
// plain user kill, and is left for a later tick once it reaches a
// terminal state; a job mid-cleanup is left alone for the same reason.
// Anything else is actually removed: its output is staged for disposal,
// the service's real-size accounting is corrected by its measured size,
// and it drops out of the in-memory index.
func (m *JobManager) checkDeletedJobs() {
	ids, err := m.gate.ListDelete()
	if err != nil {
		m.log.Error("check_deleted_jobs: list delete failed", "err", err)
		return
	}

	for _, id := range ids {
		j, ok := m.getJob(id, true)
		if !ok {
			continue
		}

		switch j.State() {
		case job.Running, job.Queued:
			adapter, err := m.schedulerFor(j)
			if err != nil {
				j.Die(err.Error(), job.Abort)
				continue
			}
			if err := adapter.Stop(j, "Delete request", job.Delete); err != nil {
				m.log.Error("check_deleted_jobs: stop failed", "id", id, "err", err)
			}
			continue
		case job.Cleanup:
			continue
		}

		svc, err := m.registry.Get(j.Service)
		if err != nil {
			m.log.Error("check_deleted_jobs: unknown service", "id", id, "service", j.Service, "err", err)
			continue
		}

		if err := j.CalculateSize(context.Background()); err != nil {
			m.log.Error("check_deleted_jobs: size calculation failed", "id", id, "err", err)
		}
		size := j.Size()

		if err := m.gate.RemoveJob(id); err != nil {
			m.log.Error("check_deleted_jobs: remove failed", "id", id, "err", err)
			continue
		}
		svc.RemoveJob(size)
		svc.RemoveJobProxy(id)
		m.forgetJob(id)
	}
}
