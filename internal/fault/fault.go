// Package fault defines the run-level error taxonomy of the assessment
// engine.
//
// A failure in challenge lookup, check-module loading, or credential
// exchange is fatal to the whole run and is reported to the caller as a
// single Error carrying a Kind. Failures inside an individual check are
// deliberately NOT represented here; they are contained by the executor
// and recorded on the criterion's result instead.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a run-level failure.
type Kind string

const (
	// NotFound means the challenge catalog has no entry for the id.
	NotFound Kind = "NotFound"

	// Inactive means the challenge exists but is disabled.
	Inactive Kind = "Inactive"

	// InvalidDefinition means the challenge record is structurally unusable
	// (no criteria, non-positive passing score, unknown status value, or an
	// inconsistent weighted-scoring declaration).
	InvalidDefinition Kind = "InvalidDefinition"

	// LoadError means the check module could not be retrieved or parsed.
	LoadError Kind = "LoadError"

	// AssumeRole means the target tenant rejected the credential exchange.
	AssumeRole Kind = "AssumeRoleError"

	// CredentialsExpired means the brokered credentials ran out before the
	// run finished.
	CredentialsExpired Kind = "CredentialsExpired"

	// Persistence means the computed result could not be stored. It is
	// logged, never returned to the caller as a run failure.
	Persistence Kind = "PersistenceError"

	// BadInput means the invocation input failed validation before any
	// work began.
	BadInput Kind = "BadInput"
)

// Error is a run-level failure with a classification and the operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New builds an Error from a plain message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes the underlying error to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or the empty string when err carries no
// classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
