// Package resilience provides the optional fault handling for backend
// calls: a consecutive-failure circuit breaker and a context-aware
// retry helper. Nothing here runs unless the client configuration
// turns it on; the data layer itself never retries.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/projectnexus/storefront/core"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed passes all calls through.
	StateClosed State = iota
	// StateOpen rejects all calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

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

// Classifier decides which errors count toward the failure threshold.
type Classifier func(error) bool

// DefaultClassifier counts only backend health problems: connectivity
// failures and 5xx responses. Rejections the caller earned (4xx,
// validation) and abandoned requests do not open the circuit.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	return core.IsConnectivity(err)
}

// CircuitBreaker trips after a run of consecutive qualifying failures,
// rejects calls for a reset timeout, then admits a probe budget in
// half-open. Any probe failure reopens the circuit; a full budget of
// successes closes it.
type CircuitBreaker struct {
	threshold        int
	resetTimeout     time.Duration
	halfOpenRequests int
	classify         Classifier
	logger           core.Logger

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenInFlight int
	halfOpenSuccess  int
}

// BreakerOption customizes a circuit breaker.
type BreakerOption func(*CircuitBreaker)

// WithClassifier replaces the failure classifier.
func WithClassifier(c Classifier) BreakerOption {
	return func(cb *CircuitBreaker) {
		if c != nil {
			cb.classify = c
		}
	}
}

// WithBreakerLogger configures the logger.
func WithBreakerLogger(l core.Logger) BreakerOption {
	return func(cb *CircuitBreaker) {
		if l != nil {
			cb.logger = l
		}
	}
}

// NewCircuitBreaker builds a circuit breaker from the resilience
// configuration section.
func NewCircuitBreaker(cfg core.CircuitBreakerConfig, opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		threshold:        cfg.Threshold,
		resetTimeout:     cfg.Timeout,
		halfOpenRequests: cfg.HalfOpenRequests,
		classify:         DefaultClassifier,
		logger:           &core.NoOpLogger{},
		state:            StateClosed,
	}
	if cb.threshold <= 0 {
		cb.threshold = 5
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = 30 * time.Second
	}
	if cb.halfOpenRequests <= 0 {
		cb.halfOpenRequests = 1
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn under the breaker. When the circuit is open the call
// is rejected with ErrCircuitOpen without touching the backend.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

// State returns the current state, advancing open→half-open when the
// reset timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked()
	return cb.state
}

// Reset forces the breaker back to closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeHalfOpenLocked()

	switch cb.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.halfOpenRequests {
			return core.NewClientError("resilience.Execute", "resilience", core.ErrCircuitOpen)
		}
		cb.halfOpenInFlight++
		return nil
	default:
		return core.NewClientError("resilience.Execute", "resilience", core.ErrCircuitOpen)
	}
}

func (cb *CircuitBreaker) record(err error) {
	failed := cb.classify(err)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			if cb.failures >= cb.threshold {
				cb.transitionLocked(StateOpen)
			}
		} else {
			cb.failures = 0
		}
	case StateHalfOpen:
		cb.halfOpenInFlight--
		if failed {
			cb.transitionLocked(StateOpen)
			return
		}
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.halfOpenRequests {
			cb.transitionLocked(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) maybeHalfOpenLocked() {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.transitionLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	if from == to {
		if to == StateClosed {
			cb.failures = 0
		}
		return
	}
	cb.state = to
	cb.failures = 0
	cb.halfOpenInFlight = 0
	cb.halfOpenSuccess = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	cb.logger.Info("Circuit breaker state change", map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	})
}
