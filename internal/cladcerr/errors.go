// Package cladcerr defines the typed error kinds shared across CLADC
// components. Every leaf component returns one of these so the
// Coordinator, Control API, and bus-published events can surface the
// kind verbatim plus a message instead of an opaque string.
package cladcerr

import (
	"errors"
	"fmt"
)

// Kind is one of the named error kinds every component may return.
type Kind string

const (
	BusUnavailable   Kind = "bus_unavailable"
	Serialization    Kind = "serialization"
	Timeout          Kind = "timeout"
	Validation       Kind = "validation"
	CapacityExceeded Kind = "capacity_exceeded"
	NotFound         Kind = "not_found"
	Conflict         Kind = "conflict"
	StepFailed       Kind = "step_failed"
	Fatal            Kind = "fatal"
)

// Error is the typed error carried between components. Component and
// CorrelationID are optional context for logging; they are never required
// for callers to make control-flow decisions (use errors.As + Kind()).
type Error struct {
	K             Kind
	Component     string
	CorrelationID string
	Message       string
	Cause         error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.K, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.K, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the error kind, or "" if err is not (or does not wrap) an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.K
	}
	return ""
}

// New constructs a typed error.
func New(k Kind, component, message string) *Error {
	return &Error{K: k, Component: component, Message: message}
}

// Wrap constructs a typed error carrying a cause.
func Wrap(k Kind, component, message string, cause error) *Error {
	return &Error{K: k, Component: component, Message: message, Cause: cause}
}

// WithCorrelation attaches a correlation id for log propagation, returning
// the same error for chaining.
func (e *Error) WithCorrelation(id string) *Error {
	e.CorrelationID = id
	return e
}

// Is supports errors.Is comparison against any *Error of the same Kind,
// such as the kind-only sentinels below, so call sites can write
// errors.Is(err, cladcerr.NotFoundErr).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.K == other.K
	}
	return false
}

// Sentinel kind-only errors for errors.Is comparisons where no message or
// cause is needed.
var (
	NotFoundErr   = &Error{K: NotFound}
	ConflictErr   = &Error{K: Conflict}
	ValidationErr = &Error{K: Validation}
)
