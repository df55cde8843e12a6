package scheduler

import "github.com/cisgate/gatequeue/job"

// Adapter is the contract a concrete batch scheduler backend must satisfy.
// Concrete adapters own their own wire protocol; the core only calls
// through this interface and never inspects backend-specific state.
type Adapter interface {
	// Name identifies the adapter, matched against a job's CIS_SCHEDULER
	// field.
	Name() string

	// GenerateScripts renders the job's submission script(s) from its
	// valid_data. A false return (with nil error) means the job's
	// parameters could not be turned into a script and it should be
	// aborted; an error is a fatal per-job failure.
	GenerateScripts(j *job.Job) (bool, error)

	// ChainInputData stages input for a job from the outputs of the jobs
	// named in its Chain. Same return convention as GenerateScripts.
	ChainInputData(j *job.Job) (bool, error)

	// Submit hands the job to the backend queue. false means the backend
	// queue is temporarily full and the job should be retried next tick;
	// an error aborts the job.
	Submit(j *job.Job) (bool, error)

	// Update polls the backend for every job currently queued or
	// running, calling Finish on any that the backend reports as having
	// left the queue.
	Update(jobs []*job.Job) error

	// Stop asks the backend to terminate a queued or running job; the
	// adapter is responsible for setting the job's exit state and moving
	// it to Closing.
	Stop(j *job.Job, message string, code job.ExitCode) error

	// Finalise tears down a normally-finished job's backend-side
	// resources. It must call j.Exit() before returning.
	Finalise(j *job.Job) error

	// Abort tears down an aborted job's backend-side resources, if any
	// were created. It must call j.Exit() before returning.
	Abort(j *job.Job) error

	// QueuePath names the directory of live scheduler-handle marker
	// files this adapter maintains, one per job it believes is still
	// queued or running.
	QueuePath() string
}
