// Package pacer spaces out frames at a fixed frame rate.
package pacer

import (
	"context"
	"time"
)

// Pacer spaces out frames at a fixed interval.
// Frames are scheduled against the start time, not against the previous frame,
// therefore a sender that falls behind catches up without sleeping.
type Pacer struct {
	Period time.Duration

	// optional
	TimeNow func() time.Time
	Sleep   func(context.Context, time.Duration) error

	start time.Time
}

// New allocates a Pacer for the given frame rate.
func New(fps float64) *Pacer {
	return &Pacer{
		Period: time.Duration(float64(time.Second) / fps),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start sets the reference time.
func (p *Pacer) Start() {
	if p.TimeNow == nil {
		p.TimeNow = time.Now
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	p.start = p.TimeNow()
}

// Deadline returns the time at which the n-th frame is due.
func (p *Pacer) Deadline(n uint64) time.Time {
	return p.start.Add(time.Duration(n) * p.Period)
}

// Wait blocks until the n-th frame is due.
func (p *Pacer) Wait(ctx context.Context, n uint64) error {
	d := p.Deadline(n).Sub(p.TimeNow())
	if d <= 0 {
		return ctx.Err()
	}
	return p.Sleep(ctx, d)
}
