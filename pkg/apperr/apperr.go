// Package apperr defines the error taxonomy shared by the core services.
// Every rejected operation carries a kind plus a specific reason string so
// the transport layer can map it to a status code without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind int

const (
	// Unknown covers unclassified infrastructure failures.
	Unknown Kind = iota
	// InvalidArgument marks malformed or out-of-range input.
	InvalidArgument
	// NotFound marks a missing or cross-tenant reference.
	NotFound
	// Forbidden marks a failed role or ownership check.
	Forbidden
	// Conflict marks a duplicate-key violation.
	Conflict
	// InvalidState marks an operation illegal for the current lifecycle state.
	InvalidState
)

// Error is a kinded error with a caller-facing reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind with a reason string.
func New(kind Kind, reason string) error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf builds an error of the given kind with a formatted reason.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and reason to an underlying error.
func Wrap(kind Kind, reason string, err error) error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf extracts the kind from err, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Reason extracts the caller-facing reason from err, falling back to Error().
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
