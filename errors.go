package gatequeue

import "errors"

// ErrUnknownScheduler is returned when a job's CIS_SCHEDULER names a
// scheduler adapter that was never registered with the manager.
var ErrUnknownScheduler = errors.New("gatequeue: unregistered scheduler")

// ErrProtocolViolation marks a job found in an adapter's queue_path in a
// state other than {queued, running, closing, cleanup} — a sign the
// backend and the daemon have disagreed about the job's lifecycle.
var ErrProtocolViolation = errors.New("gatequeue: scheduler protocol violation")
