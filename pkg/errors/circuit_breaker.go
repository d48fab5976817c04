package errors

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	// CircuitBreakerClosed lets every call through
	CircuitBreakerClosed CircuitBreakerState = iota
	// CircuitBreakerOpen rejects calls until the reset timeout elapses
	CircuitBreakerOpen
	// CircuitBreakerHalfOpen lets trial calls through
	CircuitBreakerHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerClosed:
		return "CLOSED"
	case CircuitBreakerOpen:
		return "OPEN"
	case CircuitBreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and errors
	Name string
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a trial call
	ResetTimeout time.Duration
	// SuccessThreshold is the number of trial successes that closes the circuit
	SuccessThreshold int
}

// DefaultCircuitBreakerConfig returns a default configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker stops calling a failing dependency for a while
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	now             func() time.Time
	onStateChange   func(name string, from, to CircuitBreakerState)
	mutex           sync.Mutex
}

// CircuitBreakerStats is a snapshot of a circuit breaker
type CircuitBreakerStats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	FailureCount    int       `json:"failureCount"`
	SuccessCount    int       `json:"successCount"`
	LastFailureTime time.Time `json:"lastFailureTime,omitempty"`
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		config: config,
		state:  CircuitBreakerClosed,
		now:    time.Now,
	}
}

// OnStateChange registers a callback invoked after every state transition
func (cb *CircuitBreaker) OnStateChange(fn func(name string, from, to CircuitBreakerState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn unless the circuit is open. The outcome of fn is recorded.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allow() {
		return NewEngineError(ErrCodeCircuitOpen,
			fmt.Sprintf("circuit breaker %q is open", cb.config.Name), nil).
			WithContext("circuit_breaker", cb.config.Name)
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker counters
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return CircuitBreakerStats{
		Name:            cb.config.Name,
		State:           cb.state.String(),
		FailureCount:    cb.failureCount,
		SuccessCount:    cb.successCount,
		LastFailureTime: cb.lastFailureTime,
	}
}

func (cb *CircuitBreaker) allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == CircuitBreakerOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.config.ResetTimeout {
			return false
		}
		cb.transition(CircuitBreakerHalfOpen)
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil {
		cb.failureCount++
		cb.successCount = 0
		cb.lastFailureTime = cb.now()
		if cb.state == CircuitBreakerHalfOpen || cb.failureCount >= cb.config.MaxFailures {
			cb.transition(CircuitBreakerOpen)
		}
		return
	}

	switch cb.state {
	case CircuitBreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.failureCount = 0
			cb.successCount = 0
			cb.transition(CircuitBreakerClosed)
		}
	case CircuitBreakerClosed:
		cb.failureCount = 0
	}
}

// transition must be called with the mutex held
func (cb *CircuitBreaker) transition(to CircuitBreakerState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.onStateChange != nil {
		// Run outside the lock
		go cb.onStateChange(cb.config.Name, from, to)
	}
}
