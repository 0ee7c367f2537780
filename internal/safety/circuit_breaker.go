// Package safety protects calls to external collaborators with a circuit breaker
// and a token bucket rate limiter.
package safety

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	SuccessThreshold uint32        // successes in half-open before closing
	Timeout          time.Duration // how long the breaker stays open
}

// DefaultCircuitBreakerConfig returns the thresholds used for exchange calls
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 30 * time.Second}
}

// CircuitBreaker stops calling a failing collaborator until Timeout has passed
type CircuitBreaker struct {
	mu            sync.Mutex
	name          string
	config        CircuitBreakerConfig
	state         CircuitBreakerState
	failures      uint32
	successes     uint32
	lastFailure   time.Time
	openedUntil   time.Time
	now           func() time.Time
	onStateChange func(name string, from, to CircuitBreakerState)
}

// NewCircuitBreaker creates a closed breaker; zero config fields take the defaults
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	return &CircuitBreaker{name: name, config: config, state: StateClosed, now: time.Now}
}

// SetClock replaces time.Now
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
}

// OnStateChange registers a callback run synchronously after every transition
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to CircuitBreakerState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Call runs fn unless the breaker is open. Failures of fn count toward opening it.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	if cb.state != StateOpen {
		return nil
	}
	if cb.now().Before(cb.openedUntil) {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}
	transition = cb.setState(StateHalfOpen)
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	if err == nil {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				transition = cb.setState(StateClosed)
			}
		}
		return
	}

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.openedUntil = cb.now().Add(cb.config.Timeout)
		transition = cb.setState(StateOpen)
	}
}

// setState must be called with mu held; it returns the callback to run after unlocking
func (cb *CircuitBreaker) setState(to CircuitBreakerState) func() {
	from := cb.state
	if from == to {
		return nil
	}
	cb.state = to
	cb.successes = 0
	if to == StateClosed {
		cb.failures = 0
	}
	if cb.onStateChange == nil {
		return nil
	}
	fn, name := cb.onStateChange, cb.name
	return func() { fn(name, from, to) }
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerStats holds statistics about a circuit breaker
type CircuitBreakerStats struct {
	Name        string
	State       CircuitBreakerState
	Failures    uint32
	LastFailure time.Time
	OpenedUntil time.Time
}

// Stats returns a snapshot of the breaker's counters
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		Name:        cb.name,
		State:       cb.state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		OpenedUntil: cb.openedUntil,
	}
}

// Reset closes the breaker and clears its counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	transition := cb.setState(StateClosed)
	cb.failures = 0
	cb.mu.Unlock()
	if transition != nil {
		transition()
	}
}
