// ABOUTME: Decides which failures are transient and worth retrying
// ABOUTME: Network errors, attempt timeouts and 429/500/502/503/504 statuses qualify

package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// retryableStatus lists the HTTP statuses treated as transient
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryableStatus reports whether an HTTP status is transient
func IsRetryableStatus(statusCode int) bool {
	return retryableStatus[statusCode]
}

// IsTransient reports whether err is a connection error, a timeout, or an
// HTTPError carrying a retryable status. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// An individual attempt timing out is transient; whether the caller's own
	// deadline passed is checked by Run before it gets here
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr.HTTPStatusCode() != 0 {
		return IsRetryableStatus(httpErr.HTTPStatusCode())
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	// *url.Error satisfies net.Error, so only dial/read/write failures and
	// real timeouts count here
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryableError wraps an HTTP status code as an error
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d error", e.StatusCode)
}

// HTTPStatusCode returns the wrapped status
func (e *RetryableError) HTTPStatusCode() int {
	return e.StatusCode
}

// NewRetryableError creates a new retryable error with the given status code
func NewRetryableError(statusCode int, message string) *RetryableError {
	return &RetryableError{
		StatusCode: statusCode,
		Message:    message,
	}
}
