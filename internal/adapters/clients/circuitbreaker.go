package clients

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed is the normal operating state. Requests are allowed through.
	StateClosed State = iota

	// StateOpen blocks requests until the open timeout has passed.
	StateOpen

	// StateHalfOpen lets a limited number of probe requests through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// HalfOpenLimit is the number of consecutive probe successes needed to close.
	HalfOpenLimit int
}

// CircuitBreaker guards a downstream service with a gobreaker two-step breaker.
// Callers ask Allow for a ticket and report the outcome through it, which lets
// a retry loop count as a single request.
//
// State transitions:
//   - Closed → Open: after MaxFailures consecutive failures
//   - Open → HalfOpen: after Timeout
//   - HalfOpen → Closed: after HalfOpenLimit consecutive successes
//   - HalfOpen → Open: on any failure
type CircuitBreaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[struct{}]

	mu        sync.RWMutex
	listeners []func(from, to State)
}

// NewCircuitBreaker creates a breaker for the named downstream.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	maxFailures := max(cfg.MaxFailures, 1)
	halfOpen := max(cfg.HalfOpenLimit, 1)

	breaker := &CircuitBreaker{}
	breaker.cb = gobreaker.NewTwoStepCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(halfOpen), //nolint:gosec // bounded by config validation
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures) //nolint:gosec // bounded by config validation
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			breaker.notify(fromGobreaker(from), fromGobreaker(to))
		},
	})

	return breaker
}

// Allow reports whether a request may proceed. On success the returned done
// func must be called exactly once with the request outcome.
func (b *CircuitBreaker) Allow() (done func(success bool), err error) {
	done, err = b.cb.Allow()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}

	return done, err
}

// State returns the current state, moving an expired open circuit to half-open.
func (b *CircuitBreaker) State() State {
	return fromGobreaker(b.cb.State())
}

// ConsecutiveFailures returns the failure streak in the current generation.
func (b *CircuitBreaker) ConsecutiveFailures() int {
	return int(b.cb.Counts().ConsecutiveFailures)
}

// OnStateChange registers a callback invoked on every transition.
// Callbacks run synchronously while gobreaker holds its lock and must not call back into the breaker.
func (b *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = append(b.listeners, fn)
}

func (b *CircuitBreaker) notify(from, to State) {
	b.mu.RLock()
	listeners := b.listeners
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(from, to)
	}
}
