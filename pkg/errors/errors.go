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

// Is matches errors sharing the same code so cloned values still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
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
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Punch rejections. Each one leaves sessions and the event log untouched.
var (
	ErrInvalidAction      = New("INVALID_ACTION", http.StatusBadRequest, "invalid action")
	ErrTokenExpired       = New("TOKEN_EXPIRED", http.StatusForbidden, "QR expired, scan again")
	ErrPhotoMissing       = New("PHOTO_MISSING", http.StatusBadRequest, "photo is required")
	ErrPhotoTooLarge      = New("PHOTO_TOO_LARGE", http.StatusRequestEntityTooLarge, "photo is too large")
	ErrEmployeeNotFound   = New("EMPLOYEE_NOT_FOUND", http.StatusNotFound, "employee not found")
	ErrWrongSecret        = New("WRONG_SECRET", http.StatusForbidden, "wrong PIN")
	ErrWitnessRequired    = New("WITNESS_REQUIRED", http.StatusBadRequest, "witness and witness PIN are required for proxy punches")
	ErrWitnessNotFound    = New("WITNESS_NOT_FOUND", http.StatusNotFound, "witness not found")
	ErrWrongWitnessSecret = New("WRONG_WITNESS_SECRET", http.StatusForbidden, "wrong witness PIN")
	ErrWitnessIsSubject   = New("WITNESS_IS_SUBJECT", http.StatusBadRequest, "witness must be a different employee")
	ErrAlreadyClockedIn   = New("ALREADY_CLOCKED_IN", http.StatusConflict, "already clocked in")
	ErrNoOpenSession      = New("NO_OPEN_SESSION", http.StatusConflict, "no open session to clock out")
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
