package gatefs

import "errors"

// ErrNotFound is returned when a job's request body is absent from jobs/.
var ErrNotFound = errors.New("gatefs: job not found")

// ErrUnknownState is returned by SetState/CheckState for a state name not
// present in the configured Paths.States.
var ErrUnknownState = errors.New("gatefs: unknown state")
