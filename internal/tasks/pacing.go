package tasks

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	DefaultMinDelay = 1 * time.Second
	DefaultMaxDelay = 3 * time.Second
)

// JitterPacer waits a uniformly random duration in [Min, Max].
type JitterPacer struct {
	Min time.Duration
	Max time.Duration
}

func NewJitterPacer(min, max time.Duration) *JitterPacer {
	if min <= 0 && max <= 0 {
		min, max = DefaultMinDelay, DefaultMaxDelay
	}
	if max < min {
		max = min
	}
	return &JitterPacer{Min: min, Max: max}
}

// Delay draws the next wait.
func (p *JitterPacer) Delay() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + rand.N(p.Max-p.Min+1)
}

// Pause returns early with the context error on cancellation.
func (p *JitterPacer) Pause(ctx context.Context) error {
	timer := time.NewTimer(p.Delay())
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoPacer never waits.
type NoPacer struct{}

func (NoPacer) Pause(ctx context.Context) error { return ctx.Err() }
