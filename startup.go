package gatequeue

import (
	"context"

	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/request"
	"github.com/cisgate/gatequeue/schema"
)

// Startup reconciles the in-memory job index against the gate's own
// filesystem state. It must run once, before Start, so the control loop's
// first tick sees every job that existed before this process started:
// every id under jobs/ is reconstructed, re-validated against its
// service's schema if one is known, and — for jobs with an output
// directory already on disk — folded into the service's real_size
// accounting so quota pressure computed after a restart matches what is
// actually on disk.
func (m *JobManager) Startup(ctx context.Context) error {
	ids, err := m.gate.ListJobIDs()
	if err != nil {
		return err
	}

	for _, id := range ids {
		j, ok := m.getJob(id, true)
		if !ok {
			continue
		}

		if svcSchema, ok := m.schemas[j.Service]; ok {
			if valid, err := schema.Validate(svcSchema, request.WithoutServiceKey(j.Data), m.schedulerNames()); err == nil {
				j.ValidData = valid
			}
		}

		svc, err := m.registry.Get(j.Service)
		if err != nil {
			continue
		}
		if m.gate.OutputExists(id) {
			if err := j.CalculateSize(ctx); err != nil {
				m.log.Error("startup: size calculation failed", "id", id, "err", err)
				continue
			}
			svc.UpdateJob(j.Size())
		}
		if job.IsTerminal(j.State()) {
			j.Compact()
		}
	}
	return nil
}
