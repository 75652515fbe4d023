// ABOUTME: Error taxonomy surfaced to SDK callers
// ABOUTME: Every failure crossing the client boundary is an *Error with a Kind

package apierror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure categories
type Kind string

const (
	Unauthorized         Kind = "unauthorized"
	NotFound             Kind = "not_found"
	InvalidValue         Kind = "invalid_value"
	ServiceError         Kind = "service_error"
	InternalError        Kind = "internal_error"
	AuthenticationFailed Kind = "authentication_failed"
	RetryExhausted       Kind = "retry_exhausted"
)

// Error is a classified API failure
type Error struct {
	Kind          Kind
	Message       string
	StatusCode    int    // 0 when no HTTP response was involved
	Code          string // error code from the response body, if any
	CorrelationID string
	Cause         error
}

// Error implements the error interface
func (e *Error) Error() string {
	parts := []string{string(e.Kind)}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatusCode exposes the response status so the retry policy can
// recognise retryable server errors
func (e *Error) HTTPStatusCode() int {
	return e.StatusCode
}

// New creates an error of the given kind
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an error of the given kind around cause
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// InternalError for anything unclassified
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return InternalError
}

// Is reports whether any *Error in err's chain has the given kind
func Is(err error, kind Kind) bool {
	for err != nil {
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			return false
		}
		if apiErr.Kind == kind {
			return true
		}
		err = apiErr.Cause
	}
	return false
}
