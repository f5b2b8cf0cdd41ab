package errs

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Policy defines exponential-backoff retry behavior.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier scales the delay after each attempt.
	Multiplier float64

	// Jitter adds up to 10% randomized delay to avoid lockstep retries.
	Jitter bool

	// RetryIf decides whether an error is worth retrying. Nil means
	// retry on Transient errors only.
	RetryIf func(error) bool
}

// DefaultPolicy suits outbound network calls: three attempts with
// exponential backoff starting at one second.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is
// cancelled while waiting between attempts.
func Do(ctx context.Context, policy *Policy, fn func() error) error {
	_, err := DoWithResult(ctx, policy, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions that return a value.
func DoWithResult[T any](ctx context.Context, policy *Policy, fn func() (T, error)) (T, error) {
	var zero T
	if policy == nil {
		policy = DefaultPolicy()
	}
	retryIf := policy.RetryIf
	if retryIf == nil {
		retryIf = IsTransient
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-time.After(delay):
			}

			delay = time.Duration(float64(delay) * policy.Multiplier)
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
			if policy.Jitter {
				delay += time.Duration(rand.Float64() * float64(delay) * 0.1)
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryIf(err) {
			return zero, err
		}
	}

	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// BreakerState is a circuit breaker state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the state name.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calls to a dependency that is consistently failing so
// an outage degrades immediately instead of burning the caller's
// timeout budget on every request.
type Breaker struct {
	mu sync.Mutex

	name         string
	maxFailures  int
	resetTimeout time.Duration

	state       BreakerState
	failures    int
	lastFailure time.Time
}

// NewBreaker creates a circuit breaker. After maxFailures consecutive
// failures the breaker opens; after resetTimeout it allows a single
// probe call (half-open) and closes again on success.
func NewBreaker(name string, maxFailures int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        BreakerClosed,
	}
}

// ErrBreakerOpen is returned (wrapped) when the breaker rejects a call.
type breakerOpenError struct{ name string }

func (e *breakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q is open", e.name)
}

// Execute runs fn through the breaker.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return E(Transient, b.name, &breakerOpenError{name: b.name})
	}
	err := fn()
	b.record(err)
	return err
}

// ExecuteWithResult runs fn through the breaker and returns its value.
// Standalone function because Go does not allow generic methods.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, E(Transient, b.name, &breakerOpenError{name: b.name})
	}
	result, err := fn()
	b.record(err)
	return result, err
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	case BreakerHalfOpen:
		// One probe at a time; concurrent callers wait for the next
		// record to settle the state.
		return false
	}
	return false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.state = BreakerClosed
		return
	}

	b.failures++
	b.lastFailure = time.Now()
	if b.state == BreakerHalfOpen || b.failures >= b.maxFailures {
		b.state = BreakerOpen
	}
}
