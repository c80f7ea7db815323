package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackOffSequence(t *testing.T) {
	// Scenario: a factory failing twice then succeeding yields connect
	// delays 0s, 1s, 2s, resetting to 0 on success.
	b := NewExponentialBackOff(DefaultMaxDelay)

	assert.Equal(t, time.Duration(0), b.CurrentDelay())

	b.Failure()
	assert.Equal(t, 1*time.Second, b.CurrentDelay())

	b.Failure()
	assert.Equal(t, 2*time.Second, b.CurrentDelay())

	b.Failure()
	assert.Equal(t, 4*time.Second, b.CurrentDelay())

	b.Reset()
	assert.Equal(t, time.Duration(0), b.CurrentDelay())
}

func TestExponentialBackOffCapsAtMaxDelay(t *testing.T) {
	b := NewExponentialBackOff(3 * time.Second)

	b.Failure() // 1s
	b.Failure() // 2s
	b.Failure() // would be 4s, capped at 3s
	assert.Equal(t, 3*time.Second, b.CurrentDelay())

	b.Failure()
	assert.Equal(t, 3*time.Second, b.CurrentDelay())
}

func TestExponentialBackOffDefaultsMaxDelay(t *testing.T) {
	b := NewExponentialBackOff(0)
	assert.Equal(t, time.Duration(0), b.CurrentDelay())
	assert.Equal(t, DefaultMaxDelay, b.inner.MaxInterval)
}
