package resilience

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Failing, reject calls
	StateHalfOpen              // One trial call allowed
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

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker fails fast after repeated downstream failures. It never
// retries: a rejected or failed call is reported to the caller as is.
// Transitions: Closed → Open (after failThreshold consecutive failures)
//
//	Open → HalfOpen (after cooldown expires, for a single trial call)
//	HalfOpen → Closed (on success) or Open (on failure)
type CircuitBreaker struct {
	name          string
	mu            sync.Mutex
	state         State
	failCount     int
	failThreshold int
	cooldown      time.Duration
	openedAt      time.Time
	probing       bool
	now           func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(name string, failThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	return &CircuitBreaker{
		name:          name,
		state:         StateClosed,
		failThreshold: failThreshold,
		cooldown:      cooldown,
		now:           time.Now,
	}
}

// Execute runs fn through the circuit breaker. Context cancellation by the
// caller is not counted as a downstream failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err, ctx.Err() != nil)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error, cancelled bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if err != nil {
		if cancelled {
			if cb.state == StateHalfOpen {
				cb.transition(StateOpen)
				cb.openedAt = cb.now()
			}
			return
		}
		cb.failCount++
		if cb.state == StateHalfOpen || cb.failCount >= cb.failThreshold {
			cb.transition(StateOpen)
			cb.openedAt = cb.now()
		}
		return
	}

	cb.failCount = 0
	cb.transition(StateClosed)
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	log.Printf("[Breaker] %s: %s → %s", cb.name, cb.state, to)
	cb.state = to
}

// CurrentState returns the current state of the circuit breaker.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
