package job

import (
	"context"
	"fmt"
	"sync"

	"github.com/cisgate/gatequeue/schema"
)

// Store is the narrow persistence contract Job needs from the gate
// filesystem. gatefs.Gate satisfies it; tests may supply a fake.
//
// All methods operate on a single job id and must be safe to call from both
// the JobManager's main goroutine and a cleanup worker goroutine for
// different ids concurrently. They need not be safe for concurrent calls
// about the *same* id — Job's own mutex serializes those.
type Store interface {
	SetState(id string, state State) error
	WriteOpts(id string, rec ExitRecord) error
	WriteExit(id string, message string) error
	MarkDelete(id string) error
	OutputSize(ctx context.Context, id string) (int64, error)
}

// ExitRecord is the persisted shape of opts/<id>: the exit state, code and
// accumulated message as of the last SetExitState call. Reloading it on
// restart must reproduce the in-memory triple exactly (spec round-trip
// law).
type ExitRecord struct {
	ExitState   State    `json:"exit_state"`
	ExitCode    ExitCode `json:"exit_code"`
	ExitMessage string   `json:"exit_message"`
}

// Job is a single client-submitted compute request together with its
// delivery state. All transitions go through its methods; nothing outside
// this package may mutate State or ExitState directly.
type Job struct {
	mu sync.Mutex

	// ID is the opaque, client-chosen, unique identifier; also the
	// filename of the request body under jobs/.
	ID string

	// Service names the owning service, set once validation succeeds.
	Service string

	// Data is the raw parsed request body. Cleared by Compact.
	Data map[string]any

	// ValidData is the validated, typed record produced by the schema
	// validator. Cleared by Compact.
	ValidData map[string]schema.Value

	// Chain holds the ids of other jobs whose outputs this job consumes.
	Chain []string

	state       State
	exitState   State
	exitCode    ExitCode
	exitMessage string
	size        int64

	store Store
}

// New constructs a Job bound to store. It does not load anything from the
// filesystem; callers (typically JobManager.getJob) are responsible for
// populating Data and probing the current State via store.
func New(id string, store Store) *Job {
	return &Job{
		ID:       id,
		exitCode: Undefined,
		store:    store,
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// ExitState returns the job's pending/actual exit state, or Unknown if
// none has been set yet.
func (j *Job) ExitState() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitState
}

// ExitCode returns the last recorded exit code.
func (j *Job) ExitCode() ExitCode {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitCode
}

// ExitMessage returns the concatenation of every exit message recorded so
// far.
func (j *Job) ExitMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitMessage
}

// Size returns the cached output directory size in bytes, as of the last
// CalculateSize call.
func (j *Job) Size() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.size
}

// SetProbedState sets the in-memory state directly, bypassing the
// filesystem write. It is used only when reconstructing a Job from an
// existing state-directory probe (JobManager.getJob on startup or on first
// encounter of a zombie id), where the symlink already reflects the state.
func (j *Job) SetProbedState(s State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
}

// LoadExit restores a previously persisted ExitRecord, e.g. after a restart.
func (j *Job) LoadExit(rec ExitRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.exitState = rec.ExitState
	j.exitCode = rec.ExitCode
	j.exitMessage = rec.ExitMessage
}

// Queue marks the job queued: a scheduler backend accepted the submission.
func (j *Job) Queue() error { return j.SetState(Queued) }

// Run marks the job running on a compute node.
func (j *Job) Run() error { return j.SetState(Running) }

// Cleanup marks the job as undergoing cleanup; a worker is about to
// finalise or abort its scheduler-side resources.
func (j *Job) Cleanup() error { return j.SetState(Cleanup) }

// SetState transitions the job to new. It is a no-op if the job is already
// in that state. Otherwise it creates the new state-directory symlink and
// removes every other one, then updates the in-memory field.
func (j *Job) SetState(new State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.setStateLocked(new)
}

func (j *Job) setStateLocked(new State) error {
	if new != Unknown && !validState(new) {
		return fmt.Errorf("job %s: unknown state %q", j.ID, new)
	}
	if j.state == new {
		return nil
	}
	if err := j.store.SetState(j.ID, new); err != nil {
		return fmt.Errorf("job %s: set state %s: %w", j.ID, new, err)
	}
	j.state = new
	return nil
}

func validState(s State) bool {
	switch s {
	case Waiting, Queued, Running, Closing, Cleanup, Done, Failed, Aborted, Killed:
		return true
	default:
		return false
	}
}

// Finish sets the job's exit state under the sticky-priority rule (see
// SetExitState) and then transitions it to Closing. A job may only reach
// Closing through Finish.
func (j *Job) Finish(message string, state State, code ExitCode) error {
	if err := j.SetExitState(message, state, code); err != nil {
		return err
	}
	return j.SetState(Closing)
}

// Die aborts further processing of the job: it tries Finish(message,
// Aborted, code); if that itself fails (e.g. the store is unreachable), it
// forces the in-memory state to Aborted directly so the job is never left
// stuck in an indeterminate state.
func (j *Job) Die(message string, code ExitCode) {
	if err := j.Finish(message, Aborted, code); err != nil {
		j.mu.Lock()
		j.state = Aborted
		j.exitState = Aborted
		j.mu.Unlock()
	}
}

// Mark marks the job killed by user request. It is only valid while the
// job is in {Waiting, Queued, Running}; calling it in any other state is a
// no-op (the job has already finished).
func (j *Job) Mark(message string, code ExitCode) error {
	j.mu.Lock()
	state := j.state
	j.mu.Unlock()
	switch state {
	case Waiting, Queued, Running:
		return j.SetExitState(message, Killed, code)
	default:
		return nil
	}
}

// MarkDelete creates the delete/<id> request-side mark. Actual removal is
// performed later by the JobManager's deletion sweep.
func (j *Job) MarkDelete() error {
	return j.store.MarkDelete(j.ID)
}

// SetExitState sets the job's pending exit state under the sticky-priority
// rule: once Aborted, it never changes; once Killed, it can only change to
// Aborted; otherwise the new value replaces the old one and its message is
// appended to the accumulated exit message. On acceptance the triple is
// persisted to opts/<id>; a persistence failure is returned as an error
// unless the exit state just set is Aborted, in which case it is ignored
// and nil is returned.
func (j *Job) SetExitState(message string, state State, code ExitCode) error {
	if !IsExitState(state) {
		return fmt.Errorf("job %s: invalid exit state %q", j.ID, state)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.exitState == Aborted {
		return nil
	}
	if j.exitState == Killed && state != Aborted {
		return nil
	}

	j.exitState = state
	j.exitCode = code
	j.exitMessage += fmt.Sprintf("%s:%s %s\n", state.Titlecased(), code, message)

	rec := ExitRecord{ExitState: j.exitState, ExitCode: j.exitCode, ExitMessage: j.exitMessage}
	if err := j.store.WriteOpts(j.ID, rec); err != nil {
		if j.exitState != Aborted {
			return fmt.Errorf("job %s: persist exit state: %w", j.ID, err)
		}
	}
	return nil
}

// Exit finalises the job: it requires ExitState to already be set (by
// Finish), writes the terminal exit/<id> status file, and transitions
// State to ExitState. Exit is the only way a job may enter a terminal
// state.
func (j *Job) Exit() error {
	j.mu.Lock()
	exitState := j.exitState
	message := j.exitMessage
	j.mu.Unlock()

	if exitState == Unknown {
		j.Die(fmt.Sprintf("job %s: exit called with no exit state set", j.ID), Abort)
		return fmt.Errorf("job %s: exit called with no exit state set", j.ID)
	}

	if err := j.store.WriteExit(j.ID, message); err != nil {
		return fmt.Errorf("job %s: write exit status: %w", j.ID, err)
	}
	if err := j.SetState(exitState); err != nil {
		return fmt.Errorf("job %s: exit: %w", j.ID, err)
	}
	return nil
}

// CalculateSize measures the job's output directory and caches the result
// in Size. It is only meaningful for jobs that could have produced output
// — Cleanup, Done, Failed, Killed or Aborted — and is a no-op otherwise.
// A missing output directory yields a size of zero rather than an error.
func (j *Job) CalculateSize(ctx context.Context) error {
	j.mu.Lock()
	state := j.state
	j.mu.Unlock()

	switch state {
	case Cleanup, Done, Failed, Killed, Aborted:
	default:
		return nil
	}

	size, err := j.store.OutputSize(ctx, j.ID)
	if err != nil {
		return fmt.Errorf("job %s: calculate size: %w", j.ID, err)
	}
	j.mu.Lock()
	j.size = size
	j.mu.Unlock()
	return nil
}

// Compact drops Data and ValidData to reduce the memory footprint of
// long-lived terminal jobs kept around only for their status.
func (j *Job) Compact() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Data = nil
	j.ValidData = nil
}
