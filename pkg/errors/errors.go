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
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// GPS eligibility pipeline rejections. Codes are stable; the mobile client
// renders them verbatim.
var (
	ErrInvalidCoordinates      = New("INVALID_COORDINATES", http.StatusBadRequest, "invalid GPS coordinates")
	ErrAccuracyTooLow          = New("ACCURACY_TOO_LOW", http.StatusBadRequest, "GPS accuracy too low for reliable attendance")
	ErrUserNotFound            = New("USER_NOT_FOUND", http.StatusNotFound, "user not found")
	ErrNotEnrolled             = New("NOT_ENROLLED", http.StatusForbidden, "user not enrolled in this course")
	ErrNoActiveSchedule        = New("NO_ACTIVE_SCHEDULE", http.StatusBadRequest, "no active class schedule at this time")
	ErrNoClassroomsConfigured  = New("NO_CLASSROOMS_CONFIGURED", http.StatusBadRequest, "no classrooms configured for this course")
	ErrDuplicateAttendance     = New("DUPLICATE_ATTENDANCE", http.StatusConflict, "attendance already recorded")
	ErrCollaboratorUnavailable = New("COLLABORATOR_UNAVAILABLE", http.StatusBadGateway, "upstream service unavailable")
	ErrEmptyCandidateSet       = New("EMPTY_CANDIDATE_SET", http.StatusInternalServerError, "no classroom candidates provided")
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
