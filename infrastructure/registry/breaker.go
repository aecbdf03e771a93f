// Package registry provides resilient service discovery: per-provider
// circuit breakers, priority-grouped provider pools, and strategy-based
// selection with health probing.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen indicates a provider's breaker is open and the call was
// not permitted. Callers must not retry immediately; surface it as a
// degraded-service failure.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerState is the current gate state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int

	// RecoveryTimeout is how long the breaker stays open before a probe
	// call is permitted.
	RecoveryTimeout time.Duration

	// SuccessThreshold is the number of consecutive successes in half-open
	// state required to close the breaker.
	SuccessThreshold int

	// CallTimeout bounds how long a caller may wait on the wrapped call
	// before counting it as a failure.
	CallTimeout time.Duration
}

// DefaultBreakerConfig returns the configuration used when a registration
// does not supply its own.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
		CallTimeout:      30 * time.Second,
	}
}

// withDefaults fills zero fields from the default configuration.
func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = def.RecoveryTimeout
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = def.CallTimeout
	}
	return c
}

// CircuitBreaker tracks failures and successes for one provider and gates
// calls to it. State is process-lifetime only. All methods are safe for
// concurrent use.
type CircuitBreaker struct {
	name string
	cfg  BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker with the given configuration.
func NewCircuitBreaker(name string, cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: BreakerClosed,
		now:   time.Now,
	}
}

// Name returns the breaker's name.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// Config returns the breaker's configuration.
func (b *CircuitBreaker) Config() BreakerConfig {
	return b.cfg
}

// State returns the current state, applying the open-to-half-open
// transition if the recovery timeout has elapsed.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecoverLocked()
	return b.state
}

// IsAvailable reports whether a call to the wrapped provider is permitted.
// While open, it becomes true only once the recovery timeout has elapsed,
// at which point the breaker moves to half-open as a side effect.
func (b *CircuitBreaker) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecoverLocked()
	return b.state != BreakerOpen
}

// CheckAndRaise returns ErrCircuitOpen when the breaker is open and the
// recovery timeout has not elapsed.
func (b *CircuitBreaker) CheckAndRaise() error {
	if b.IsAvailable() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
}

// RecordSuccess records a successful call. In half-open state, reaching
// the success threshold closes the breaker and zeroes both counters.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	default:
		b.failures = 0
	}
}

// RecordFailure records a failed call. Reaching the failure threshold in
// closed state opens the breaker; any failure in half-open state re-opens
// it immediately.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.successes = 0
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.state = BreakerOpen
		}
	}
}

// Reset returns the breaker to its initial closed state.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.successes = 0
	b.lastFailure = time.Time{}
}

// maybeRecoverLocked transitions open to half-open once the recovery
// timeout has elapsed. Caller holds b.mu.
func (b *CircuitBreaker) maybeRecoverLocked() {
	if b.state != BreakerOpen {
		return
	}
	if b.lastFailure.IsZero() {
		return
	}
	if b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
		b.state = BreakerHalfOpen
		b.successes = 0
	}
}
