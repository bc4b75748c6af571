package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("backend: not found")
	ErrUnauthenticated = errors.New("backend: not authenticated")
	// ErrRejected means the backend understood the request and refused it.
	ErrRejected = errors.New("backend: request rejected")
	// ErrUnavailable covers transport failures, 5xx answers and an open breaker.
	// Callers may retry.
	ErrUnavailable = errors.New("backend: unavailable")
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Message    string
	kind       error
}

func newStatusError(code int, message string) *StatusError {
	return &StatusError{StatusCode: code, Message: message, kind: classify(code)}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

func classify(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthenticated
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return ErrUnavailable
	case code >= 400 && code < 500:
		return ErrRejected
	default:
		return ErrUnavailable
	}
}

// Detail returns the backend's own explanation, when one was given.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

// isBreakerFailure counts only backend faults. A cancelled caller says nothing
// about the backend.
func isBreakerFailure(err error) bool {
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, context.Canceled)
}
