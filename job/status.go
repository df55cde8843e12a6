package job

import "fmt"

// State represents the current lifecycle state of a Job.
//
// The state machine is:
//
//	waiting -> queued -> running -> closing -> cleanup -> {done,failed,aborted,killed}
//
// The four terminal states double as the valid ExitState values on Job:
// ExitState names the state a job will be put into once cleanup finishes,
// State is the state it is actually in right now.
//
// Unknown is reserved as a zero value and is used to mean "no exit state
// has been set yet" when read from Job.ExitState.
type State uint8

const (
	// Unknown represents an unspecified state. It is the zero value of
	// State and the zero value of Job.ExitState before Finish is called.
	Unknown State = iota

	// Waiting indicates the request has been submitted and is waiting for
	// the JobManager to validate and submit it to a scheduler.
	Waiting

	// Queued indicates the request was accepted by a scheduler backend and
	// is waiting to run.
	Queued

	// Running indicates the job is executing on a compute node.
	Running

	// Closing indicates the job has finished (or been told to stop) and is
	// waiting for a cleanup worker to pick it up.
	Closing

	// Cleanup indicates a worker is finalising or aborting the job's
	// scheduler-side resources. Exit() transitions out of this state.
	Cleanup

	// Done indicates successful completion.
	Done

	// Failed indicates the job ran to completion with a non-zero exit
	// code.
	Failed

	// Aborted indicates an error occurred during preprocessing,
	// submission, or postprocessing, before or instead of running.
	Aborted

	// Killed indicates the job was killed, either by user request or by
	// daemon shutdown.
	Killed
)

// precedence is the deterministic probe order used by CheckState: the
// first state (in this order) with a state-directory symlink present wins.
// It mirrors the teacher's __check_state probe order and tolerates the
// momentary multi-symlink states that an interrupted SetState may leave
// behind.
var precedence = []State{Aborted, Killed, Failed, Done, Cleanup, Closing, Running, Queued, Waiting}

// Precedence returns the deterministic state-probe order, most authoritative
// (most terminal) first.
func Precedence() []State {
	out := make([]State, len(precedence))
	copy(out, precedence)
	return out
}

// IsTerminal reports whether s is one of the four terminal exit states.
func IsTerminal(s State) bool {
	switch s {
	case Done, Failed, Aborted, Killed:
		return true
	default:
		return false
	}
}

// IsExitState reports whether s is a value Job.ExitState may legally hold.
func IsExitState(s State) bool {
	return IsTerminal(s)
}

func stateToString(s State) string {
	switch s {
	case Waiting:
		return "waiting"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Closing:
		return "closing"
	case Cleanup:
		return "cleanup"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	case Killed:
		return "killed"
	default:
		return "unknown"
	}
}

func stateFromString(s string) (State, error) {
	switch s {
	case "waiting":
		return Waiting, nil
	case "queued":
		return Queued, nil
	case "running":
		return Running, nil
	case "closing":
		return Closing, nil
	case "cleanup":
		return Cleanup, nil
	case "done":
		return Done, nil
	case "failed":
		return Failed, nil
	case "aborted":
		return Aborted, nil
	case "killed":
		return Killed, nil
	case "unknown", "":
		return Unknown, nil
	default:
		return 0, fmt.Errorf("unknown job state: %s", s)
	}
}

// ParseState converts a string representation of a state into a State
// value. An error is returned for unrecognized strings.
func ParseState(s string) (State, error) {
	return stateFromString(s)
}

// MarshalText implements encoding.TextMarshaler. States are encoded using
// their canonical lower-case names.
func (s State) MarshalText() ([]byte, error) {
	return []byte(stateToString(s)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	state, err := stateFromString(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// String returns the canonical string representation of the state.
func (s State) String() string {
	return stateToString(s)
}

// Titlecased returns the state name with its first letter upper-cased, the
// form used as the prefix of exit messages ("Done:0 ...", "Killed:3 ...").
func (s State) Titlecased() string {
	str := stateToString(s)
	if str == "" {
		return str
	}
	return string(str[0]-'a'+'A') + str[1:]
}
