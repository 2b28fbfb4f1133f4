// Package apierr provides structured error types for the storyline API.
//
// Every failure that can reach a caller carries a stable machine-readable
// code and an HTTP status, so handlers never invent status mappings inline.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable machine-readable error code exposed in responses.
type Code string

const (
	CodeMissingFields        Code = "MISSING_FIELDS"
	CodeMissingPayloadFields Code = "MISSING_PAYLOAD_FIELDS"
	CodeInvalidType          Code = "INVALID_TYPE"
	CodeInvalidTimestamp     Code = "INVALID_TIMESTAMP"
	CodeInvalidAction        Code = "INVALID_ACTION"
	CodeInvalidActivityLogs  Code = "INVALID_ACTIVITY_LOGS"
	CodeInvalidProjectID     Code = "INVALID_PROJECT_ID"
	CodeInvalidAPIKey        Code = "INVALID_API_KEY"
	CodeInvalidAPISecret     Code = "INVALID_API_SECRET"
	CodeProjectAccessDenied  Code = "PROJECT_ACCESS_DENIED"
	CodeMethodNotAllowed     Code = "METHOD_NOT_ALLOWED"
	CodeDatabaseError        Code = "DATABASE_ERROR"
	CodeDatabaseUpdateError  Code = "DATABASE_UPDATE_ERROR"
	CodeDatabaseInsertError  Code = "DATABASE_INSERT_ERROR"
	CodeInternalError        Code = "INTERNAL_ERROR"
)

// Sentinel errors for the broad failure classes the pipeline distinguishes.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("authorization failed")
	ErrUnavailable  = errors.New("downstream unavailable")
	ErrInternal     = errors.New("internal invariant violation")
)

// Error is an API-visible failure with a stable code and HTTP status.
type Error struct {
	Code    Code
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the canonical status for its code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Status: statusFor(code), Message: message, Err: classFor(code)}
}

// Wrap creates an Error preserving the underlying cause.
func Wrap(code Code, message string, err error) *Error {
	e := New(code, message)
	e.Err = fmt.Errorf("%w: %w", e.Err, err)
	return e
}

// statusFor maps a code to its HTTP status. Validation failures are 400,
// credential failures 401, scope failures 403, everything downstream 500.
func statusFor(code Code) int {
	switch code {
	case CodeInvalidAPIKey, CodeInvalidAPISecret:
		return http.StatusUnauthorized
	case CodeProjectAccessDenied:
		return http.StatusForbidden
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeDatabaseError, CodeDatabaseUpdateError, CodeDatabaseInsertError, CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// classFor maps a code to its sentinel class so callers can branch with
// errors.Is without inspecting codes.
func classFor(code Code) error {
	switch code {
	case CodeInvalidAPIKey, CodeInvalidAPISecret, CodeProjectAccessDenied:
		return ErrUnauthorized
	case CodeDatabaseError, CodeDatabaseUpdateError, CodeDatabaseInsertError:
		return ErrUnavailable
	case CodeInternalError:
		return ErrInternal
	default:
		return ErrInvalidInput
	}
}

// CodeOf extracts the stable code from an error chain, defaulting to
// INTERNAL_ERROR for anything unstructured.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}

// StatusOf extracts the HTTP status from an error chain.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the caller-facing message from an error chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// IsRetryable reports whether the whole request is worth retrying from the
// caller's side. Only downstream failures qualify; validation and
// authorization failures never do.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
