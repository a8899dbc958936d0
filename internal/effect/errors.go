package effect

import (
	"errors"
	"fmt"
)

// Code identifies a typed failure category.
//
// Codes cross the invocation boundary intact so that callers can
// distinguish at least "unauthenticated", "constraint violated", and
// "other domain error" without string matching.
type Code string

const (
	// CodeUnauthenticated indicates no identity was present where one is required.
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// CodeNotUnique indicates a uniqueness constraint violation on a write.
	CodeNotUnique Code = "NOT_UNIQUE"

	// CodeNotFound indicates a referenced document or function does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeBadRequest indicates caller-supplied data that a handler rejected.
	CodeBadRequest Code = "BAD_REQUEST"
)

// Failure is a typed, declared, recoverable error. Failures propagate
// through the invocation boundary preserving their code and details.
//
// Handlers raise failures for business conditions a caller can act on.
// Everything else - panics, codec violations, undeclared errors - is a
// Defect and aborts the invocation.
type Failure struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional structured context.
	Details map[string]string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Code)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Failf creates a Failure with a formatted message.
func Failf(code Code, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsFailure extracts a Failure from an error chain.
// Uses errors.As to handle wrapped errors.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// HasCode reports whether err is a Failure with the given code.
func HasCode(err error, code Code) bool {
	f, ok := AsFailure(err)
	return ok && f.Code == code
}

// Defect is an unrecoverable error: a boundary contract violation or a
// programming bug. Defects abort the invocation immediately, are never
// retried, and are never part of a handler's declared error surface.
type Defect struct {
	Cause error
}

// Error implements the error interface.
func (d *Defect) Error() string {
	return fmt.Sprintf("defect: %v", d.Cause)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (d *Defect) Unwrap() error { return d.Cause }

// NewDefect wraps a cause as a Defect. Wrapping an existing Defect
// returns it unchanged so causes are not double-wrapped.
func NewDefect(cause error) *Defect {
	var d *Defect
	if errors.As(cause, &d) {
		return d
	}
	return &Defect{Cause: cause}
}

// Defectf creates a Defect with a formatted cause.
func Defectf(format string, args ...any) *Defect {
	return &Defect{Cause: fmt.Errorf(format, args...)}
}

// IsDefect reports whether err is (or wraps) a Defect.
func IsDefect(err error) bool {
	var d *Defect
	return errors.As(err, &d)
}

// Classify enforces the error taxonomy at the executor boundary: a Failure
// anywhere in the chain passes through unchanged, an existing Defect passes
// through unchanged, and anything else - an undeclared error kind - becomes
// a Defect.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsFailure(err); ok {
		return err
	}
	if IsDefect(err) {
		return err
	}
	return &Defect{Cause: err}
}
