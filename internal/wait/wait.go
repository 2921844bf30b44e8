// Package wait provides the cooperative delay used by the export poll loop
// and between shard downloads. Production code sleeps on the wall clock;
// tests substitute a Waiter that returns immediately.
package wait

import (
	"context"
	"time"
)

// Waiter blocks for a fixed delay or until ctx is done.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// WaiterFunc is a function adapter for Waiter.
type WaiterFunc func(ctx context.Context, d time.Duration) error

func (f WaiterFunc) Wait(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// Sleep is the wall-clock Waiter.
type Sleep struct{}

// Wait sleeps for d. It returns ctx.Err() if ctx is done first.
func (Sleep) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Recorder is a Waiter that never blocks and remembers every requested
// delay. Err, when set, is returned from every call.
type Recorder struct {
	Delays []time.Duration
	Err    error
}

// Wait records d and returns r.Err.
func (r *Recorder) Wait(ctx context.Context, d time.Duration) error {
	r.Delays = append(r.Delays, d)
	return r.Err
}
