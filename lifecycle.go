package gatequeue

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/cisgate/gatequeue/internal"
)

const (
	stopped = iota
	started
)

var (
	// ErrDoubleStarted is returned when Start is called on a manager that
	// is already running.
	ErrDoubleStarted = errors.New("gatequeue: daemon double start")

	// ErrDoubleStopped is returned when Shutdown is called on a manager
	// that is not currently running.
	ErrDoubleStopped = errors.New("gatequeue: daemon double stop")

	// ErrStopTimeout is returned when the main loop fails to exit within
	// the provided timeout during Shutdown.
	ErrStopTimeout = errors.New("gatequeue: daemon stop timeout")
)

// lcBase guards the daemon's own Start/Shutdown lifecycle, distinct from
// the pause/resume flag that only gates admission of new jobs.
type lcBase struct {
	state atomic.Int32
}

func (lb *lcBase) tryStart() error {
	if !lb.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	return nil
}

func (lb *lcBase) tryStop(timeout time.Duration, df internal.DoneFunc) error {
	if !lb.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := df()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// admission gates check_new_jobs only; Pause/Resume toggle it while the
// rest of the tick continues to run regardless, per the spec's
// stop()/start() semantics.
type admission struct {
	paused atomic.Bool
}

func (a *admission) Pause()  { a.paused.Store(true) }
func (a *admission) Resume() { a.paused.Store(false) }
func (a *admission) allowed() bool { return !a.paused.Load() }
