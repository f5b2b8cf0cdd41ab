package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestENilPassthrough(t *testing.T) {
	if got := E(Transient, "op", nil); got != nil {
		t.Errorf("E with nil error = %v, want nil", got)
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"validation", E(Validation, "dispatch", errors.New("missing param")), Validation},
		{"config", E(Config, "agents.load", errors.New("empty result")), Config},
		{"transient", E(Transient, "llm.chat", errors.New("timeout")), Transient},
		{"uncategorized defaults to transient", errors.New("plain"), Transient},
		{"wrapped survives fmt.Errorf", fmt.Errorf("outer: %w", E(Validation, "x", errors.New("inner"))), Validation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := E(Transient, "memory.append", errors.New("connection refused"))
	want := "memory.append: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := E(Config, "load", inner)
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error must not be transient")
	}
	if IsTransient(E(Validation, "op", errors.New("bad"))) {
		t.Error("validation error must not be transient")
	}
	if !IsTransient(E(Transient, "op", errors.New("down"))) {
		t.Error("transient error must be transient")
	}
}
