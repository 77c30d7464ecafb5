package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/googleapi"
)

var (
	// ErrEmptyResponse means the model answered with no usable text.
	ErrEmptyResponse = errors.New("model returned no content")

	// ErrUnparseable means the model answered but not in the expected shape.
	ErrUnparseable = errors.New("model response could not be parsed")

	// ErrMissingAPIKey means the client was constructed without credentials.
	ErrMissingAPIKey = errors.New("missing API key")
)

// Error wraps a provider failure with a retryability verdict. Retryable
// failures (rate limits, server errors, network trouble) can be resolved
// by asking again; terminal ones cannot.
type Error struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a provider failure worth retrying.
// Unknown errors count as retryable so transient trouble is never
// misreported as permanent.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return true
}

// classify turns a raw API or transport error into a *Error.
func classify(op string, err error) *Error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		retryable := apiErr.Code == 429 || apiErr.Code >= 500
		return &Error{Op: op, Retryable: retryable, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: op, Retryable: true, Err: err}
	}

	switch {
	case errors.Is(err, ErrEmptyResponse):
		return &Error{Op: op, Retryable: true, Err: err}
	case errors.Is(err, ErrUnparseable), errors.Is(err, ErrMissingAPIKey):
		return &Error{Op: op, Retryable: false, Err: err}
	}

	return &Error{Op: op, Retryable: true, Err: err}
}
