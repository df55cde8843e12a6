package gatequeue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cisgate/gatequeue/gatefs"
	"github.com/cisgate/gatequeue/internal"
	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/quota"
	"github.com/cisgate/gatequeue/schema"
	"github.com/cisgate/gatequeue/scheduler"
)

// Config collects everything JobManager needs beyond the gate paths
// already baked into gate: the tick cadence, the shutdown grace period,
// how many cleanup workers may run concurrently, and the per-service
// schemas used to validate incoming requests.
type Config struct {
	SleepTime     time.Duration
	ShutdownTime  time.Duration
	CleanupPool   int
	CleanupQueue  int
	ServiceSchema map[string]*schema.ServiceSchema
}

// JobManager runs the single control loop that mediates between the gate
// and the registered scheduler adapters.
type JobManager struct {
	lcBase
	admission

	gate       *gatefs.Gate
	schedulers map[string]scheduler.Adapter
	registry   *quota.Registry
	schemas    map[string]*schema.ServiceSchema
	warnLimit  *quota.WarnLimiter[string]

	sleepTime    time.Duration
	shutdownTime time.Duration

	mu   sync.Mutex
	jobs map[string]*job.Job

	cleanupPool *internal.WorkerPool[*job.Job]
	tick        internal.TimerTask

	log *slog.Logger
}

// New constructs a JobManager. It does not start the control loop; call
// Start for that, after Startup has reconciled in-memory state against
// the gate.
func New(gate *gatefs.Gate, registry *quota.Registry, adapters []scheduler.Adapter, cfg Config, log *slog.Logger) *JobManager {
	schedulers := make(map[string]scheduler.Adapter, len(adapters))
	for _, a := range adapters {
		schedulers[a.Name()] = a
	}
	if log == nil {
		log = slog.Default()
	}

	return &JobManager{
		gate:         gate,
		schedulers:   schedulers,
		registry:     registry,
		schemas:      cfg.ServiceSchema,
		warnLimit:    quota.NewWarnLimiter[string](quota.EscalationThreshold(cfg.SleepTime)),
		sleepTime:    cfg.SleepTime,
		shutdownTime: cfg.ShutdownTime,
		jobs:         make(map[string]*job.Job),
		cleanupPool:  internal.NewWorkerPool[*job.Job](cfg.CleanupPool, cfg.CleanupQueue, log),
		log:          log,
	}
}

func (m *JobManager) schedulerNames() []string {
	names := make([]string, 0, len(m.schedulers))
	for n := range m.schedulers {
		names = append(names, n)
	}
	return names
}

func (m *JobManager) schedulerFor(j *job.Job) (scheduler.Adapter, error) {
	name, ok := schema.Get[string](j.ValidData, "CIS_SCHEDULER")
	if !ok {
		return nil, fmt.Errorf("%w: job %s has no CIS_SCHEDULER", ErrUnknownScheduler, j.ID)
	}
	a, ok := m.schedulers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduler, name)
	}
	return a, nil
}

// Start begins the control loop: Startup must already have been called.
func (m *JobManager) Start(ctx context.Context) error {
	if err := m.tryStart(); err != nil {
		return err
	}
	m.cleanupPool.Start(ctx, m.runCleanupWorker)
	m.tick.StartDelayed(ctx, m.runTick, m.sleepTime)
	return nil
}

// runTick executes the six control-loop steps in order, once. Each step's
// own directory-listing failure is logged and that step is skipped; a
// failure never aborts subsequent steps.
func (m *JobManager) runTick(ctx context.Context) {
	if m.admission.allowed() {
		m.checkNewJobs(ctx)
	}
	m.checkRunningJobs(ctx)
	m.checkJobKillRequests()
	m.checkCleanup()
	m.checkOldJobs()
	m.checkDeletedJobs()
}

func (m *JobManager) runCleanupWorker(ctx context.Context, j *job.Job) {
	adapter, err := m.schedulerFor(j)
	if err != nil {
		j.Die(err.Error(), job.Abort)
		return
	}

	if j.ExitState() == job.Aborted {
		if err := adapter.Abort(j); err != nil {
			m.log.Error("cleanup worker: abort failed", "id", j.ID, "err", err)
		}
		return
	}
	if err := adapter.Finalise(j); err != nil {
		m.log.Error("cleanup worker: finalise failed", "id", j.ID, "err", err)
	}
}
