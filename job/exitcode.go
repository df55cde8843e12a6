package job

import "strconv"

// ExitCode is a closed-but-extensible enum describing why a job reached its
// exit state. Values are formatted directly into exit messages
// ("Killed:2 User request"), so ExitCode implements fmt.Stringer with the
// bare integer as the canonical textual form, matching
// original_source's ExitCodes (a plain Python int-like enum formatted with
// %s directly into the message).
type ExitCode int

const (
	// Success marks normal completion. Pinned to 0 so a freshly-zeroed
	// ExitCode reads as success rather than "unknown", matching the wire
	// format's "Done:0 <message>".
	Success ExitCode = 0
	// Undefined means no exit code has been assigned yet; distinct from
	// Success so in-memory Jobs don't default to looking successful.
	Undefined ExitCode = -1
	// Abort marks an internal/preprocessing error (see Job.Die).
	Abort ExitCode = 1
	// UserKill marks a client-requested kill (stop/<id> mark).
	UserKill ExitCode = 2
	// Delete marks removal requested via delete/<id>, including the
	// stop-then-delete path for live jobs.
	Delete ExitCode = 3
	// Shutdown marks a job ended by daemon shutdown.
	Shutdown ExitCode = 4
)

// String returns the canonical textual form of the exit code: its plain
// integer value, exactly as original_source formats ExitCodes into
// messages.
func (c ExitCode) String() string {
	return strconv.Itoa(int(c))
}
