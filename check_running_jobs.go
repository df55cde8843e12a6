package gatequeue

import (
	"context"
	"path/filepath"

	"github.com/cisgate/gatequeue/gatefs"
	"github.com/cisgate/gatequeue/job"
)

// checkRunningJobs reconciles each scheduler adapter's queue_path against
// the in-memory job index: jobs the backend still holds are handed to
// Update for a liveness/completion poll, jobs found there in a state the
// protocol forbids are aborted, and handle files with no matching job are
// reaped as zombies.
func (m *JobManager) checkRunningJobs(ctx context.Context) {
	for name, adapter := range m.schedulers {
		ids, err := gatefs.ListDir(adapter.QueuePath())
		if err != nil {
			m.log.Error("check_running_jobs: list queue_path failed", "scheduler", name, "err", err)
			continue
		}

		var live []*job.Job
		for _, id := range ids {
			j, ok := m.getJob(id, false)
			if !ok {
				m.log.Warn("check_running_jobs: zombie handle, no matching job", "scheduler", name, "id", id)
				_ = gatefs.Unlink(filepath.Join(adapter.QueuePath(), id))
				continue
			}

			switch j.State() {
			case job.Queued, job.Running:
				live = append(live, j)
			case job.Closing, job.Cleanup:
				// already being torn down; the adapter hasn't removed its
				// handle yet, nothing to do this tick
			default:
				j.Die("scheduler protocol violation: job present in queue_path in an unexpected state", job.Abort)
				m.log.Error("check_running_jobs: protocol violation", "id", id, "state", j.State(), "err", ErrProtocolViolation)
			}
		}

		if len(live) == 0 {
			continue
		}
		if err := adapter.Update(live); err != nil {
			m.log.Error("check_running_jobs: update failed", "scheduler", name, "err", err)
		}
	}
}
