package connection

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackOffStrategy decouples the connection manager's reconnect logic
// from a specific back-off algorithm.
type BackOffStrategy interface {
	Failure()
	Reset()
	CurrentDelay() time.Duration
}

// ExponentialBackOff doubles its delay on every failure, starting at
// one second, capped at MaxDelay (default 60s), and resets to zero on
// success. It is built on backoff.ExponentialBackOff so the doubling
// and jitter-free cap logic is the well-exercised library
// implementation rather than a hand-rolled one.
type ExponentialBackOff struct {
	inner *backoff.ExponentialBackOff
	delay time.Duration
}

// DefaultMaxDelay is the default cap on back-off delay.
const DefaultMaxDelay = 60 * time.Second

// NewExponentialBackOff constructs a back-off starting at zero delay
// with the given cap.
func NewExponentialBackOff(maxDelay time.Duration) *ExponentialBackOff {
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	inner := backoff.NewExponentialBackOff()
	inner.InitialInterval = 1 * time.Second
	inner.Multiplier = 2
	inner.RandomizationFactor = 0
	inner.MaxInterval = maxDelay
	inner.MaxElapsedTime = 0 // never give up
	inner.Reset()
	return &ExponentialBackOff{inner: inner}
}

// Failure advances the delay: 0 -> 1s, then doubling, capped at MaxInterval.
func (b *ExponentialBackOff) Failure() {
	if b.delay == 0 {
		// NextBackOff hands out InitialInterval on its first call;
		// consume it here so the next failure doubles.
		b.inner.NextBackOff()
		b.delay = b.inner.InitialInterval
		return
	}
	next := b.inner.NextBackOff()
	if next == backoff.Stop {
		next = b.inner.MaxInterval
	}
	b.delay = next
}

// Reset zeroes the delay after a successful connect.
func (b *ExponentialBackOff) Reset() {
	b.delay = 0
	b.inner.Reset()
}

// CurrentDelay returns the delay to wait before the next connect
// attempt.
func (b *ExponentialBackOff) CurrentDelay() time.Duration {
	return b.delay
}
