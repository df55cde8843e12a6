package gatequeue

import (
	"context"
	"fmt"

	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/quota"
	"github.com/cisgate/gatequeue/request"
	"github.com/cisgate/gatequeue/schema"
)

// checkNewJobs admits requests waiting to be validated and submitted to a
// scheduler backend. Gated by admission.allowed() at the call site in
// runTick, not here, so it stays a plain directory sweep.
func (m *JobManager) checkNewJobs(ctx context.Context) {
	ids, err := m.gate.ListState("waiting")
	if err != nil {
		m.log.Error("check_new_jobs: list waiting failed", "err", err)
		return
	}

	for _, id := range ids {
		j, ok := m.getJob(id, true)
		if !ok {
			continue
		}
		m.admitJob(ctx, j)
	}
}

func (m *JobManager) admitJob(ctx context.Context, j *job.Job) {
	svcSchema, ok := m.schemas[j.Service]
	if !ok {
		j.Die(fmt.Sprintf("unknown service %q", j.Service), job.Abort)
		return
	}

	valid, err := schema.Validate(svcSchema, request.WithoutServiceKey(j.Data), m.schedulerNames())
	if err != nil {
		j.Die(err.Error(), job.Abort)
		return
	}
	j.ValidData = valid

	svc, err := m.registry.Get(j.Service)
	if err != nil {
		j.Die(err.Error(), job.Abort)
		return
	}

	ok, deleted := quota.CollectGarbage(svc, false, m.gcCandidates(j.Service))
	for _, id := range deleted {
		if dj, found := m.getJob(id, false); found {
			_ = dj.MarkDelete()
		}
	}
	if !ok {
		level := m.warnLimit.Warn(j.Service, svc.CurrentSize())
		switch level {
		case quota.LevelWarning:
			m.log.Warn("service under quota pressure", "service", j.Service, "current_size", svc.CurrentSize())
		case quota.LevelError:
			m.log.Error("service persistently under quota pressure", "service", j.Service)
		}
		return
	}
	m.warnLimit.Reset(j.Service)

	adapter, err := m.schedulerFor(j)
	if err != nil {
		j.Die(err.Error(), job.Abort)
		return
	}

	if ok, err := adapter.GenerateScripts(j); err != nil {
		j.Die(err.Error(), job.Abort)
		return
	} else if !ok {
		j.Die("scheduler could not generate submission script", job.Abort)
		return
	}
	if ok, err := adapter.ChainInputData(j); err != nil {
		j.Die(err.Error(), job.Abort)
		return
	} else if !ok {
		j.Die("scheduler could not stage chained input data", job.Abort)
		return
	}

	submitted, err := adapter.Submit(j)
	if err != nil {
		j.Die(err.Error(), job.Abort)
		return
	}
	if !submitted {
		return // backend queue temporarily full; retry next tick
	}

	if err := j.Queue(); err != nil {
		m.log.Error("check_new_jobs: queue transition failed", "id", j.ID, "err", err)
		return
	}
	svc.AddJobProxy(j.ID)
}
