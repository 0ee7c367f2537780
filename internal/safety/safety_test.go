package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

var errBoom = errors.New("boom")

// TestCircuitBreakerOpensAfterFailures tests the closed to open transition
func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("bybit", CircuitBreakerConfig{FailureThreshold: 3, Timeout: time.Minute})
	cb.SetClock(clock.Now)

	var transitions []string
	cb.OnStateChange(func(name string, from, to CircuitBreakerState) {
		transitions = append(transitions, name+":"+from.String()+"->"+to.String())
	})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Call(func() error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 0, calls)
	assert.Equal(t, []string{"bybit:CLOSED->OPEN"}, transitions)
	assert.Equal(t, clock.Now().Add(time.Minute), cb.Stats().OpenedUntil)
}

// TestCircuitBreakerHalfOpen tests recovery and re-opening from half-open
func TestCircuitBreakerHalfOpen(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker("bybit", CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Minute})
	cb.SetClock(clock.Now)

	require.Error(t, cb.Call(func() error { return errBoom }))
	clock.Advance(time.Minute)

	require.Error(t, cb.Call(func() error { return errBoom }))
	assert.Equal(t, StateOpen, cb.State(), "a half-open failure reopens the breaker")

	clock.Advance(time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

// TestCircuitBreakerSuccessResetsFailures tests that failures must be consecutive
func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("bybit", CircuitBreakerConfig{FailureThreshold: 2})
	require.Error(t, cb.Call(func() error { return errBoom }))
	require.NoError(t, cb.Call(func() error { return nil }))
	require.Error(t, cb.Call(func() error { return errBoom }))
	assert.Equal(t, StateClosed, cb.State())

	require.Error(t, cb.Call(func() error { return errBoom }))
	assert.Equal(t, StateOpen, cb.State())
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(0), cb.Stats().Failures)
}

// TestRateLimiterRefill tests token consumption and continuous refill
func TestRateLimiterRefill(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter("bybit", 2, 4)
	rl.SetClock(clock.Now)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clock.Advance(250 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clock.Advance(time.Hour)
	assert.InDelta(t, 2.0, rl.Tokens(), 1e-9)
}

// TestRateLimiterWait tests blocking and cancellation
func TestRateLimiterWait(t *testing.T) {
	rl := NewRateLimiter("bybit", 1, 100)
	require.NoError(t, rl.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)

	slow := NewRateLimiter("slow", 1, 0.001)
	require.True(t, slow.Allow())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.Wait(ctx), context.DeadlineExceeded)
}
