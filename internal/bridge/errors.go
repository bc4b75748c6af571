package bridge

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindInvalidRequest is a missing or malformed validation URL. Nothing was sent upstream.
	KindInvalidRequest Kind = "invalid_request"
	// KindRejected means the payment network (via the backend) refused to validate the merchant.
	KindRejected Kind = "validation_rejected"
	// KindUnavailable means the backend could not be reached or failed. The
	// wallet flow may be retried with a fresh validation URL.
	KindUnavailable Kind = "upstream_unavailable"
)

var (
	ErrMissingValidationURL   = errors.New("validationURL is required")
	ErrMalformedValidationURL = errors.New("validationURL must be an absolute https URL")
	// ErrClientGone is returned when the caller stopped waiting. The upstream
	// call keeps running and its result is dropped.
	ErrClientGone = errors.New("client went away before merchant validation finished")
)

type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("merchant validation %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("merchant validation %s: %v (%s)", e.Kind, e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the wallet sheet may be shown again. A retry must
// start a new validation, the old URL is single use.
func (e *Error) Retryable() bool {
	return e.Kind == KindUnavailable
}

func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnavailable
}
