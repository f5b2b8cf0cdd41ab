// Package errs classifies failures into the small set of categories the
// rest of Ayla uses to decide between retry, degrade, and surface.
package errs

import (
	"errors"
	"fmt"
)

// Category describes how an error should be handled by its caller.
type Category int

const (
	// Transient covers I/O failures that may succeed on retry:
	// completion API timeouts, Redis or gateway unavailability, 5xx.
	Transient Category = iota

	// Validation covers bad input that will never succeed: unknown tool
	// names, missing required arguments, malformed payloads.
	Validation

	// Config covers missing or unusable configuration: an empty agent
	// load, absent credentials. Callers degrade to built-in defaults.
	Config
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Transient:
		return "transient"
	case Validation:
		return "validation"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Error pairs an underlying error with a category and the operation
// that produced it. It participates in errors.Is/As chains via Unwrap.
type Error struct {
	Category Category
	Op       string
	Err      error
}

// E wraps err with a category and operation name. Returns nil when err
// is nil so call sites can wrap unconditionally.
func E(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Category: category, Op: op, Err: err}
}

// Errorf constructs a categorized error from a format string.
func Errorf(category Category, op string, format string, args ...any) error {
	return &Error{Category: category, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategoryOf extracts the category from an error chain. Uncategorized
// errors report Transient, the safe default for retry decisions.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return Transient
}

// IsTransient reports whether err should be treated as retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return CategoryOf(err) == Transient
}
