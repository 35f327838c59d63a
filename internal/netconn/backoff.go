package netconn

import "time"

const (
	// DefaultMinPoll is the sleep between iterations while a connection is busy
	DefaultMinPoll = 100 * time.Microsecond
	// DefaultMaxPoll caps the sleep of an idle connection
	DefaultMaxPoll = 10 * time.Millisecond
)

// Backoff computes the idle sleep of a poll loop.
// Any activity snaps it back to the minimum; each idle iteration doubles it
// up to the maximum.
type Backoff struct {
	min time.Duration
	max time.Duration
	cur time.Duration
}

// NewBackoff returns a Backoff starting at min.
// Non-positive bounds fall back to the defaults and max is raised to min if
// it is smaller.
func NewBackoff(min, max time.Duration) *Backoff {
	if min <= 0 {
		min = DefaultMinPoll
	}
	if max <= 0 {
		max = DefaultMaxPoll
	}
	if max < min {
		max = min
	}
	return &Backoff{min: min, max: max, cur: min}
}

// Current returns the sleep computed by the last call to Next
func (b *Backoff) Current() time.Duration {
	return b.cur
}

// Next records whether the iteration did any work and returns the sleep
// that should follow it
func (b *Backoff) Next(active bool) time.Duration {
	if active {
		b.cur = b.min
		return b.cur
	}
	b.cur *= 2
	if b.cur > b.max {
		b.cur = b.max
	}
	return b.cur
}

// Reset returns the backoff to its minimum
func (b *Backoff) Reset() {
	b.cur = b.min
}
