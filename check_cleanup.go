package gatequeue

import "github.com/cisgate/gatequeue/job"

// checkCleanup hands every job waiting in closing/ to a cleanup worker. A
// job with no exit state set is a daemon bug, not a user error, and is
// aborted outright. A job that never made it past validation (empty
// ValidData) has no scheduler-side resources to tear down, so it may only
// be closing because it was aborted; anything else closing with no valid
// data is itself aborted rather than handed to a scheduler that was never
// chosen for it.
func (m *JobManager) checkCleanup() {
	ids, err := m.gate.ListState("closing")
	if err != nil {
		m.log.Error("check_cleanup: list closing failed", "err", err)
		return
	}

	for _, id := range ids {
		j, ok := m.getJob(id, true)
		if !ok {
			continue
		}

		if j.ExitState() == job.Unknown {
			j.Die("job reached closing with no exit state set", job.Abort)
			continue
		}

		if len(j.ValidData) == 0 {
			if j.ExitState() != job.Aborted {
				j.Die("job reached closing with no valid data outside of abort", job.Abort)
				continue
			}
			if err := j.Exit(); err != nil {
				m.log.Error("check_cleanup: exit failed", "id", id, "err", err)
			}
			continue
		}

		if err := j.Cleanup(); err != nil {
			m.log.Error("check_cleanup: cleanup transition failed", "id", id, "err", err)
			continue
		}
		if !m.cleanupPool.Push(j) {
			m.log.Warn("check_cleanup: cleanup pool shutting down, job left in cleanup", "id", id)
		}
	}
}
