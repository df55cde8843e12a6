package quota

import (
	"fmt"
	"testing"
	"time"
)

func TestCollectGarbageFastPath(t *testing.T) {
	svc := NewService("svc", Config{QuotaMB: 100, JobSizeMB: 10, MinLifetime: time.Hour})
	ok, deleted := CollectGarbage(svc, false, nil)
	if !ok || len(deleted) != 0 {
		t.Fatalf("fast path: ok=%v deleted=%v, want ok=true deleted=[]", ok, deleted)
	}
}

func TestCollectGarbageReclaimsOldestFirst(t *testing.T) {
	svc := NewService("svc", Config{QuotaMB: 100, JobSizeMB: 20, MinLifetime: time.Hour})
	// Simulate five proxied jobs worth 20MB each already admitted.
	for i := 0; i < 5; i++ {
		svc.AddJobProxy(fmt.Sprintf("job-%d", i))
	}
	if got, want := svc.CurrentSize(), int64(5*20*bytesPerMB); got != want {
		t.Fatalf("CurrentSize = %d, want %d", got, want)
	}

	candidates := []Candidate{
		{ID: "job-2", Age: 2 * time.Hour},
		{ID: "job-0", Age: 10 * time.Hour},
		{ID: "job-1", Age: 5 * time.Hour},
	}
	ok, deleted := CollectGarbage(svc, false, candidates)
	if !ok {
		t.Fatalf("expected ok=true after reclaiming down to watermark")
	}
	if len(deleted) == 0 {
		t.Fatalf("expected at least one candidate to be deleted under pressure")
	}
	if deleted[0] != "job-0" {
		t.Fatalf("deleted[0] = %s, want oldest-first order", deleted[0])
	}
}

func TestCollectGarbageSkipsYoungCandidates(t *testing.T) {
	svc := NewService("svc", Config{QuotaMB: 10, JobSizeMB: 20, MinLifetime: 6 * time.Hour})
	svc.AddJobProxy("job-a")
	svc.AddJobProxy("job-b")

	candidates := []Candidate{
		{ID: "too-young", Age: time.Hour},
	}
	_, deleted := CollectGarbage(svc, false, candidates)
	for _, id := range deleted {
		if id == "too-young" {
			t.Fatalf("candidate younger than MinLifetime must never be selected")
		}
	}
}

func TestCollectGarbageHardBreach(t *testing.T) {
	svc := NewService("svc", Config{QuotaMB: 10, JobSizeMB: 5, MinLifetime: time.Hour})
	svc.UpdateJob(50 * bytesPerMB) // real_size far past 1.3x quota
	ok, _ := CollectGarbage(svc, false, nil)
	if ok {
		t.Fatalf("expected hard quota breach to return false")
	}
}

func TestWarnLimiterEscalates(t *testing.T) {
	l := NewWarnLimiter[string](3)

	if lvl := l.Warn("svc", 100); lvl != LevelWarning {
		t.Fatalf("first call = %v, want LevelWarning", lvl)
	}
	if lvl := l.Warn("svc", 100); lvl != LevelNone {
		t.Fatalf("unchanged size = %v, want LevelNone", lvl)
	}
	if lvl := l.Warn("svc", 100); lvl != LevelError {
		t.Fatalf("third call at threshold = %v, want LevelError", lvl)
	}
	if lvl := l.Warn("svc", 100); lvl != LevelWarning {
		t.Fatalf("call after reset = %v, want LevelWarning", lvl)
	}
}
