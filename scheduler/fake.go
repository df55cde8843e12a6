package scheduler

import (
	"sync"

	"github.com/cisgate/gatequeue/job"
)

// Fake is an in-memory Adapter used by the core's own tests: Submit
// always succeeds unless QueueFull is set, and Update/Stop/Finalise/Abort
// are driven explicitly by the test rather than by any real backend.
type Fake struct {
	NameValue string
	QueueFull bool

	mu     sync.Mutex
	queued map[string]*job.Job
}

// NewFake constructs a Fake adapter named name.
func NewFake(name string) *Fake {
	return &Fake{NameValue: name, queued: make(map[string]*job.Job)}
}

var _ Adapter = (*Fake)(nil)

func (f *Fake) Name() string { return f.NameValue }

func (f *Fake) QueuePath() string { return "" }

func (f *Fake) GenerateScripts(j *job.Job) (bool, error) { return true, nil }

func (f *Fake) ChainInputData(j *job.Job) (bool, error) { return true, nil }

func (f *Fake) Submit(j *job.Job) (bool, error) {
	if f.QueueFull {
		return false, nil
	}
	f.mu.Lock()
	f.queued[j.ID] = j
	f.mu.Unlock()
	return true, nil
}

// Update is a no-op; tests drive job transitions directly and call
// Finish themselves to simulate backend behavior precisely.
func (f *Fake) Update(jobs []*job.Job) error { return nil }

func (f *Fake) Stop(j *job.Job, message string, code job.ExitCode) error {
	f.mu.Lock()
	delete(f.queued, j.ID)
	f.mu.Unlock()
	return j.Finish(message, job.Killed, code)
}

func (f *Fake) Finalise(j *job.Job) error {
	f.mu.Lock()
	delete(f.queued, j.ID)
	f.mu.Unlock()
	return j.Exit()
}

func (f *Fake) Abort(j *job.Job) error {
	f.mu.Lock()
	delete(f.queued, j.ID)
	f.mu.Unlock()
	return j.Exit()
}

// Queued reports whether id is currently tracked as submitted.
func (f *Fake) Queued(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.queued[id]
	return ok
}
