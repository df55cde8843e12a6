package quota

import (
	"sort"
	"time"
)

// Candidate is a terminal job eligible for garbage collection: it belongs
// to the service being collected, its output directory exists, and Age is
// the time elapsed since the reference path CollectGarbage's caller chose
// for it (see the job aging rules this package's sibling check applies).
type Candidate struct {
	ID  string
	Age time.Duration
}

// CollectGarbage implements the service quota reclamation algorithm.
// Candidates younger than svc.Config.MinLifetime are never selected,
// regardless of pressure. On return, deleted lists the candidate ids
// CollectGarbage selected for removal; it has already called
// RemoveJobProxy for each of them, so svc's current_size already reflects
// the decision — only the physical bytes remain to be reclaimed by the
// caller's subsequent deletion sweep.
func CollectGarbage(svc *Service, full bool, candidates []Candidate) (ok bool, deleted []string) {
	quota := svc.Config.Quota()

	if !full && svc.CurrentSize()+svc.Config.JobSize() < quota && svc.RealSize() < quotaSoftCeiling(quota) {
		return true, nil
	}

	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Age >= svc.Config.MinLifetime {
			eligible = append(eligible, c)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].Age > eligible[j].Age })

	watermark := int64(0)
	if !full {
		watermark = int64(float64(quota) * 0.8)
	}

	for _, c := range eligible {
		if svc.CurrentSize() < watermark {
			break
		}
		svc.RemoveJobProxy(c.ID)
		deleted = append(deleted, c.ID)
	}

	if svc.RealSize() > quotaSoftCeiling(quota) {
		return false, deleted
	}
	return svc.CurrentSize()+svc.Config.JobSize() < quota, deleted
}

// quotaSoftCeiling is the hard-breach threshold, 1.3x quota, above which
// the registry stops admitting new jobs for the service entirely.
func quotaSoftCeiling(quota int64) int64 {
	return int64(float64(quota) * 1.3)
}
