package gatequeue

import "github.com/cisgate/gatequeue/job"

// checkJobKillRequests services every pending stop/<id> mark: a job still
// running or queued is handed to its scheduler to stop; a job still
// waiting (never submitted) is killed directly; a job already finished is
// left alone with a warning. The mark is consumed either way.
func (m *JobManager) checkJobKillRequests() {
	ids, err := m.gate.ListStop()
	if err != nil {
		m.log.Error("check_job_kill_requests: list stop failed", "err", err)
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
				break
			}
			if err := adapter.Stop(j, "User request", job.UserKill); err != nil {
				m.log.Error("check_job_kill_requests: stop failed", "id", id, "err", err)
			}
		case job.Waiting:
			if err := j.Finish("User request", job.Killed, job.UserKill); err != nil {
				m.log.Error("check_job_kill_requests: finish failed", "id", id, "err", err)
			}
		default:
			m.log.Warn("check_job_kill_requests: stop requested for already-finished job", "id", id, "state", j.State())
		}

		if err := m.gate.RemoveStopMark(id); err != nil {
			m.log.Error("check_job_kill_requests: remove mark failed", "id", id, "err", err)
		}
	}
}
