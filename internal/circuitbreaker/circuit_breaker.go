// Package circuitbreaker implements the circuit breaker pattern used to
// skip pricing providers that are persistently failing.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/uxmeas/kollects-io/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are blocked
	StateOpen State = "open"
	// StateHalfOpen means the circuit is testing if the service has recovered
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when too many probes run in half-open state
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	MaxFailures      int           // Consecutive failures before opening
	Timeout          time.Duration // Time to wait before attempting half-open
	HalfOpenMaxCalls int           // Max probe calls allowed in half-open state
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// CircuitBreaker tracks consecutive failures and short-circuits calls to a
// failing collaborator until it recovers.
type CircuitBreaker struct {
	name             string
	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int

	mu               sync.Mutex
	state            State
	consecutiveFails int
	halfOpenCalls    int
	lastStateChange  time.Time
}

// New creates a new circuit breaker
func New(config *Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:             config.Name,
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		state:            StateClosed,
		lastStateChange:  time.Now(),
	}
}

// Execute runs fn with circuit breaker protection. When the circuit is
// open, fn is not called and ErrCircuitOpen is returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.beforeRequest(ctx); err != nil {
		return err
	}

	err := fn()
	cb.afterRequest(ctx, err)
	return err
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// beforeRequest checks whether a request may proceed
func (cb *CircuitBreaker) beforeRequest(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastStateChange) > cb.timeout {
			cb.setState(ctx, StateHalfOpen)
			cb.halfOpenCalls = 1
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.halfOpenMaxCalls {
			return ErrTooManyRequests
		}
		cb.halfOpenCalls++
		return nil

	default:
		return nil
	}
}

// afterRequest records the outcome and transitions state
func (cb *CircuitBreaker) afterRequest(ctx context.Context, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.consecutiveFails = 0
		if cb.state == StateHalfOpen {
			cb.setState(ctx, StateClosed)
		}
		return
	}

	cb.consecutiveFails++

	switch cb.state {
	case StateHalfOpen:
		// Probe failed, back to open
		cb.setState(ctx, StateOpen)
	case StateClosed:
		if cb.consecutiveFails >= cb.maxFailures {
			cb.setState(ctx, StateOpen)
		}
	}
}

// setState transitions state (must be called with lock held)
func (cb *CircuitBreaker) setState(ctx context.Context, state State) {
	if cb.state == state {
		return
	}
	cb.state = state
	cb.lastStateChange = time.Now()
	cb.halfOpenCalls = 0

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"circuitBreaker": cb.name,
		"state":          string(state),
	}).Info("Circuit breaker state changed")
}
