package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies enforcement failures for callers that branch on
// the failure class rather than the message.
type ErrorKind int

const (
	// KindPrivilege: elevated rights required. User-actionable, never retried.
	KindPrivilege ErrorKind = iota
	// KindResource: hosts file missing, unreadable, or unwritable.
	KindResource
	// KindValidation: rejected before any write occurred.
	KindValidation
	// KindState: operation not valid in the current engine state.
	KindState
	// KindPersistence: config or session file write failure.
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindPrivilege:
		return "privilege"
	case KindResource:
		return "resource"
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// EnforcementError carries a user-displayable message alongside the
// internal error kind and wrapped cause.
type EnforcementError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *EnforcementError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *EnforcementError) Unwrap() error {
	return e.Err
}

// UserMessage is the display-ready text for the failure.
func (e *EnforcementError) UserMessage() string {
	return e.Message
}

// NewPrivilegeError reports a missing-elevation failure.
func NewPrivilegeError(message string) *EnforcementError {
	return &EnforcementError{Kind: KindPrivilege, Message: message}
}

// NewResourceError wraps a hosts-file access failure.
func NewResourceError(message string, err error) *EnforcementError {
	return &EnforcementError{Kind: KindResource, Message: message, Err: err}
}

// NewValidationError reports input rejected before any write.
func NewValidationError(message string) *EnforcementError {
	return &EnforcementError{Kind: KindValidation, Message: message}
}

// NewStateError reports an operation invalid in the current state.
func NewStateError(message string) *EnforcementError {
	return &EnforcementError{Kind: KindState, Message: message}
}

// NewPersistenceError wraps a config/session write failure.
func NewPersistenceError(message string, err error) *EnforcementError {
	return &EnforcementError{Kind: KindPersistence, Message: message, Err: err}
}

// KindOf extracts the error kind, or ok=false for untyped errors.
func KindOf(err error) (ErrorKind, bool) {
	var ee *EnforcementError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
