package gatequeue

import (
	"context"
	"time"

	"github.com/cisgate/gatequeue/internal"
	"github.com/cisgate/gatequeue/job"
)

// Shutdown drains the daemon in three phases: first every live job is
// asked to stop (running/queued jobs through their scheduler, waiting
// jobs directly), then the process sleeps shutdown_time to give those
// requests a chance to land, then a final cleanup pass is run once more
// so anything that finished during the sleep gets torn down. Anything
// still non-terminal after that is force-finished as killed and exited
// inline rather than left for a control loop that is no longer running.
// It blocks until the control loop and cleanup pool have both exited, or
// returns ErrStopTimeout if that takes longer than twice shutdown_time.
func (m *JobManager) Shutdown(ctx context.Context) error {
	stopAll := func() internal.DoneChan {
		for _, j := range m.snapshotJobs() {
			m.stopForShutdown(j)
		}

		time.Sleep(m.shutdownTime)
		m.checkCleanup()
		m.finishStragglers()

		return internal.Combine(m.tick.Stop(), m.cleanupPool.Stop())
	}

	return m.tryStop(2*m.shutdownTime, stopAll)
}

func (m *JobManager) stopForShutdown(j *job.Job) {
	switch j.State() {
	case job.Running, job.Queued:
		adapter, err := m.schedulerFor(j)
		if err != nil {
			j.Die(err.Error(), job.Abort)
			return
		}
		if err := adapter.Stop(j, "Daemon shutdown", job.Shutdown); err != nil {
			m.log.Error("shutdown: stop failed", "id", j.ID, "err", err)
		}
	case job.Waiting:
		if err := j.Finish("Daemon shutdown", job.Killed, job.Shutdown); err != nil {
			m.log.Error("shutdown: finish failed", "id", j.ID, "err", err)
		}
	}
}

// finishStragglers force-terminates any job still not in a terminal state
// after the grace period and the final cleanup pass: daemon shutdown
// cannot wait forever for a backend that never reports completion.
func (m *JobManager) finishStragglers() {
	for _, j := range m.snapshotJobs() {
		if job.IsTerminal(j.State()) {
			continue
		}
		if err := j.Finish("Daemon shutdown: forced", job.Killed, job.Shutdown); err != nil {
			m.log.Error("shutdown: forced finish failed", "id", j.ID, "err", err)
			continue
		}
		if err := j.Exit(); err != nil {
			m.log.Error("shutdown: forced exit failed", "id", j.ID, "err", err)
		}
	}
}
