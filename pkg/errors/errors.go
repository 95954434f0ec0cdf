package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// ErrCacheMiss signals that a cache lookup found no entry. Internal only,
// never surfaced to clients.
var ErrCacheMiss = errors.New("cache miss")

// Matching domain errors. All recoverable and user-facing.
var (
	ErrMatchingNotReady       = New("MATCHING_NOT_READY", http.StatusPreconditionFailed, "registration periods have not closed yet")
	ErrMatchingClosed         = New("MATCHING_CLOSED", http.StatusPreconditionFailed, "matching period has ended for this program")
	ErrAlreadyMatched         = New("ALREADY_MATCHED", http.StatusConflict, "mentee already has an active match in this program")
	ErrMentorNotApproved      = New("MENTOR_NOT_APPROVED", http.StatusPreconditionFailed, "mentor is not approved for this program")
	ErrMentorCapacityExceeded = New("MENTOR_CAPACITY_EXCEEDED", http.StatusConflict, "mentor has no remaining mentee capacity")
	ErrMatchExpired           = New("MATCH_EXPIRED", http.StatusConflict, "acceptance window for this match has elapsed")
	ErrInvalidMatchState      = New("INVALID_MATCH_STATE", http.StatusConflict, "match is no longer awaiting a response")
	ErrRejectionReasonShort   = New("REJECTION_REASON_TOO_SHORT", http.StatusBadRequest, "rejection reason must be at least 10 characters")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
