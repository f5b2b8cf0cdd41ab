package errs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesTransient(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		if calls < 3 {
			return E(Transient, "op", errors.New("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil after retries", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnValidation(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		return E(Validation, "op", errors.New("bad input"))
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (validation must not retry)", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func() error {
		calls++
		return E(Transient, "op", errors.New("always down"))
	})
	if err == nil {
		t.Fatal("Do() = nil, want error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoWithResult(t *testing.T) {
	got, err := DoWithResult(context.Background(), fastPolicy(), func() (string, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("DoWithResult() error = %v", err)
	}
	if got != "ok" {
		t.Errorf("DoWithResult() = %q, want %q", got, "ok")
	}
}

func TestDoRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastPolicy(), func() error {
		calls++
		return E(Transient, "op", errors.New("down"))
	})
	if err == nil {
		t.Fatal("Do() = nil, want cancellation error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after cancel)", calls)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := NewBreaker("test", 2, time.Hour)

	fail := func() error { return errors.New("down") }
	_ = b.Execute(fail)
	_ = b.Execute(fail)

	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open after 2 failures", b.State())
	}

	calls := 0
	err := b.Execute(func() error { calls++; return nil })
	if err == nil {
		t.Error("open breaker must reject calls")
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 while open", calls)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker("test", 1, 5*time.Millisecond)

	_ = b.Execute(func() error { return errors.New("down") })
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(10 * time.Millisecond)

	// Probe call closes the breaker on success.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker("test", 1, 5*time.Millisecond)

	_ = b.Execute(func() error { return errors.New("down") })
	time.Sleep(10 * time.Millisecond)
	_ = b.Execute(func() error { return errors.New("still down") })

	if b.State() != BreakerOpen {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
}
