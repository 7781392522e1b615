// Package backoff provides retry delay strategies for failed jobs.
// All strategies are safe for concurrent use (they are stateless).
package backoff

import (
	"math"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	// Attempt 1 is the first retry after the initial failure.
	Delay(attempt int) time.Duration
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of attempt number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Power
// ──────────────────────────────────────────────────

// DefaultBase is the base used when a Power strategy is built with a
// non-positive base.
const DefaultBase = 2.0

// Power grows the delay as a power of the attempt number.
// Delay = Base^attempt seconds, capped at Max when Max > 0.
type Power struct {
	Base float64
	Max  time.Duration
}

// NewPower creates a power backoff strategy with no cap.
func NewPower(base float64) *Power {
	if base <= 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		base = DefaultBase
	}
	return &Power{Base: base}
}

// Delay returns Base^attempt seconds. Results that would overflow
// time.Duration saturate at the largest representable duration.
func (p *Power) Delay(attempt int) time.Duration {
	secs := math.Pow(p.Base, float64(attempt))
	ns := secs * float64(time.Second)

	var d time.Duration
	if ns >= math.MaxInt64 {
		d = time.Duration(math.MaxInt64)
	} else {
		d = time.Duration(ns)
	}

	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the strategy used when no base is configured:
// Power with base 2, so retries wait 2s, 4s, 8s, ...
func DefaultStrategy() Strategy {
	return NewPower(DefaultBase)
}
