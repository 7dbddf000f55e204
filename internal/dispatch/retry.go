package dispatch

import (
	"time"
)

// RetryPolicy decides whether a failed send is tried again.
// attempt is the number of sends made so far for the item (1 after the first failure).
type RetryPolicy interface {
	Next(attempt int, err error) (time.Duration, bool)
}

// NoRetry drops an item after its first failed send.
type NoRetry struct{}

func (NoRetry) Next(int, error) (time.Duration, bool) { return 0, false }

// Bounded retries up to MaxAttempts sends in total, waiting Delay between them.
// ShouldRetry, if set, limits retries to the errors it accepts.
type Bounded struct {
	MaxAttempts int
	Delay       time.Duration
	ShouldRetry func(error) bool
}

func (b Bounded) Next(attempt int, err error) (time.Duration, bool) {
	if attempt >= b.MaxAttempts {
		return 0, false
	}
	if b.ShouldRetry != nil && !b.ShouldRetry(err) {
		return 0, false
	}
	return b.Delay, true
}
