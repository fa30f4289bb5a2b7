package internalerr

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotConfigured     = errors.New("service not configured")
	ErrUnavailable       = errors.New("service unavailable")
	ErrTimeout           = errors.New("service timed out")
	ErrMalformedResponse = errors.New("malformed response")
)

// IsUnavailable reports whether err means a dependency could not be reached,
// including timeouts.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout)
}

// Transport classifies a raw I/O error as ErrTimeout or ErrUnavailable.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}
