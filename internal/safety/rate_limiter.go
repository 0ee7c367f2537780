package safety

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled continuously at refillRate tokens per second
type RateLimiter struct {
	mu         sync.Mutex
	name       string
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter creates a full bucket. A non-positive refill rate falls back to capacity per second.
func NewRateLimiter(name string, capacity int, refillRate float64) *RateLimiter {
	if capacity < 1 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = float64(capacity)
	}
	return &RateLimiter{
		name:       name,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// SetClock replaces time.Now and restarts the refill from the new clock
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
	rl.lastRefill = now()
}

// Allow takes one token if available
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.Allow() {
			return nil
		}
		timer := time.NewTimer(rl.waitTime())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastRefill = now
}

func (rl *RateLimiter) waitTime() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	missing := 1 - rl.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / rl.refillRate * float64(time.Second))
}

// Tokens returns the tokens currently available
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}
