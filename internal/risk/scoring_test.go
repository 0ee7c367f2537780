package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestCeilingScore tests the three-piece scoring curve
func TestCeilingScore(t *testing.T) {
	assert.Equal(t, 100, ceilingScore(0.4, true))
	assert.Equal(t, 76, ceilingScore(0.8, false))
	assert.Equal(t, 70, ceilingScore(1.0, false))
	assert.Equal(t, 10, ceilingScore(2.0, false))
	assert.Equal(t, 0, ceilingScore(5.0, false))
}

// TestFloorScore tests liquidity-style scoring
func TestFloorScore(t *testing.T) {
	assert.Equal(t, 100, floorScore(2000, 1000))
	assert.Equal(t, 85, floorScore(1500, 1000))
	assert.Equal(t, 70, floorScore(1000, 1000))
	assert.Equal(t, 35, floorScore(500, 1000))
	assert.Equal(t, 0, floorScore(0, 1000))
	assert.Equal(t, 100, floorScore(0, 0))
}

// TestTruncation tests clamping of scores and severities
func TestTruncation(t *testing.T) {
	assert.Equal(t, 24, truncScore(0.3*80))
	assert.Equal(t, 0, truncScore(-5))
	assert.Equal(t, 100, truncScore(250))

	assert.Equal(t, 1, truncSeverity(0.4))
	assert.Equal(t, 8, truncSeverity(8.9))
	assert.Equal(t, 10, truncSeverity(42))

	assert.Equal(t, 100, sumToConfidence([]int{8, 10}))
	assert.Equal(t, 30, sumToConfidence([]int{3}))
	assert.Equal(t, 0, sumToConfidence(nil))
}

// TestTTLCacheExpiry tests that entries go stale at the TTL boundary
func TestTTLCacheExpiry(t *testing.T) {
	clock := newTestClock()
	c := newTTLCache[int](5*time.Minute, clock.Now)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(4*time.Minute + 59*time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

// TestTTLCacheWithoutExpiry tests that a zero TTL never expires
func TestTTLCacheWithoutExpiry(t *testing.T) {
	clock := newTestClock()
	c := newTTLCache[string](0, clock.Now)
	c.Set("k", "v")
	clock.Advance(365 * 24 * time.Hour)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	c.Clear()
	_, ok = c.Get("k")
	assert.False(t, ok)
}
