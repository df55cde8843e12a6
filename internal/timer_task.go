package internal

import (
	"context"
	"time"
)

// TimerHandler is invoked once per tick of a TimerTask.
type TimerHandler func(context.Context)

// TimerTask runs a handler on a fixed interval until stopped.
type TimerTask struct {
	cancel context.CancelFunc
	done   DoneChan
}

func (t *TimerTask) do(ctx context.Context, h TimerHandler, interval time.Duration, delayFirst bool) {
	defer close(t.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if !delayFirst {
		h(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h(ctx)
		}
	}
}

// Start launches the task, calling h immediately and then once per
// interval.
func (t *TimerTask) Start(ctx context.Context, h TimerHandler, interval time.Duration) {
	t.start(ctx, h, interval, false)
}

// StartDelayed launches the task, waiting one interval before the first
// call to h rather than firing immediately — the control loop's tick
// always sleeps before its first pass, never after.
func (t *TimerTask) StartDelayed(ctx context.Context, h TimerHandler, interval time.Duration) {
	t.start(ctx, h, interval, true)
}

func (t *TimerTask) start(ctx context.Context, h TimerHandler, interval time.Duration, delayFirst bool) {
	t.done = make(DoneChan)
	ctx, t.cancel = context.WithCancel(ctx)
	go t.do(ctx, h, interval, delayFirst)
}

// Stop cancels the task and returns a channel closed once its goroutine
// has exited.
func (t *TimerTask) Stop() DoneChan {
	t.cancel()
	return t.done
}
