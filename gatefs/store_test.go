package gatefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cisgate/gatequeue/job"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	root := t.TempDir()
	states := []string{"waiting", "queued", "running", "closing", "cleanup", "done", "failed", "aborted", "killed"}
	g := NewGate(NewPaths(root, states))
	if err := g.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return g
}

func TestSetStateCreatesAndClearsSymlinks(t *testing.T) {
	g := newTestGate(t)
	id := "job-1"
	if err := os.WriteFile(filepath.Join(g.paths.Jobs, id), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("seed job body: %v", err)
	}

	if err := g.SetState(id, job.Waiting); err != nil {
		t.Fatalf("SetState(waiting): %v", err)
	}
	if got := g.CheckState(id); got != job.Waiting {
		t.Fatalf("CheckState after waiting = %v, want %v", got, job.Waiting)
	}

	if err := g.SetState(id, job.Running); err != nil {
		t.Fatalf("SetState(running): %v", err)
	}
	if got := g.CheckState(id); got != job.Running {
		t.Fatalf("CheckState after running = %v, want %v", got, job.Running)
	}
	if _, err := os.Lstat(filepath.Join(g.paths.States["waiting"], id)); !os.IsNotExist(err) {
		t.Fatalf("waiting symlink should have been removed, stat err = %v", err)
	}
}

func TestSetStateIsIdempotent(t *testing.T) {
	g := newTestGate(t)
	id := "job-2"
	os.WriteFile(filepath.Join(g.paths.Jobs, id), []byte(`{}`), 0o644)

	if err := g.SetState(id, job.Queued); err != nil {
		t.Fatalf("first SetState: %v", err)
	}
	if err := g.SetState(id, job.Queued); err != nil {
		t.Fatalf("second SetState (no-op via symlinkIfMissing): %v", err)
	}
	if got := g.CheckState(id); got != job.Queued {
		t.Fatalf("CheckState = %v, want %v", got, job.Queued)
	}
}

func TestCheckStatePrecedenceOnMultiLink(t *testing.T) {
	g := newTestGate(t)
	id := "job-3"
	os.WriteFile(filepath.Join(g.paths.Jobs, id), []byte(`{}`), 0o644)

	target := filepath.Join(g.paths.Jobs, id)
	if err := os.Symlink(target, filepath.Join(g.paths.States["running"], id)); err != nil {
		t.Fatalf("seed running link: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(g.paths.States["aborted"], id)); err != nil {
		t.Fatalf("seed aborted link: %v", err)
	}

	if got := g.CheckState(id); got != job.Aborted {
		t.Fatalf("CheckState under multi-link = %v, want %v (aborted wins precedence)", got, job.Aborted)
	}
}

func TestWriteAndReadOpts(t *testing.T) {
	g := newTestGate(t)
	id := "job-4"
	rec := job.ExitRecord{ExitState: job.Done, ExitCode: job.Success, ExitMessage: "Done:0 ok\n"}
	if err := g.WriteOpts(id, rec); err != nil {
		t.Fatalf("WriteOpts: %v", err)
	}
	got, err := g.ReadOpts(id)
	if err != nil {
		t.Fatalf("ReadOpts: %v", err)
	}
	if got != rec {
		t.Fatalf("ReadOpts round-trip = %+v, want %+v", got, rec)
	}
}

func TestOutputSizeMissingDirIsZero(t *testing.T) {
	g := newTestGate(t)
	size, err := g.OutputSize(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("OutputSize: %v", err)
	}
	if size != 0 {
		t.Fatalf("OutputSize for missing dir = %d, want 0", size)
	}
}

func TestRemoveJobUnlinksEverything(t *testing.T) {
	g := newTestGate(t)
	id := "job-5"
	os.WriteFile(filepath.Join(g.paths.Jobs, id), []byte(`{}`), 0o644)
	os.WriteFile(filepath.Join(g.paths.Exit, id), []byte("Done:0 ok\n"), 0o644)
	if err := g.SetState(id, job.Done); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	outDir := filepath.Join(g.paths.Output, id)
	if err := os.MkdirAll(filepath.Join(outDir, "sub"), 0o755); err != nil {
		t.Fatalf("seed output dir: %v", err)
	}
	os.WriteFile(filepath.Join(outDir, "sub", "f"), []byte("x"), 0o644)

	if err := g.RemoveJob(id); err != nil {
		t.Fatalf("RemoveJob: %v", err)
	}

	if _, err := os.Stat(filepath.Join(g.paths.Jobs, id)); !os.IsNotExist(err) {
		t.Fatalf("jobs/%s should be gone, err = %v", id, err)
	}
	if _, err := os.Stat(filepath.Join(g.paths.Exit, id)); !os.IsNotExist(err) {
		t.Fatalf("exit/%s should be gone, err = %v", id, err)
	}
	if _, err := os.Lstat(filepath.Join(g.paths.States["done"], id)); !os.IsNotExist(err) {
		t.Fatalf("done symlink should be gone, err = %v", err)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Fatalf("output/%s should be gone, err = %v", id, err)
	}
	if _, err := os.Stat(filepath.Join(g.paths.Dump, id)); !os.IsNotExist(err) {
		t.Fatalf("dump/%s staging should have been cleaned up, err = %v", id, err)
	}
}
