package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks an expected miss: no cached verdict, no candidate,
	// no eligible video. Callers skip, they do not surface these.
	ErrNotFound = errors.New("not found")
	// ErrRequest marks a recoverable request failure the user can retry.
	ErrRequest = errors.New("request failure")
	// ErrCapture marks a frame capture or metadata failure. Never retried
	// automatically.
	ErrCapture = errors.New("capture failure")
	// ErrTimeout marks an exhausted polling budget.
	ErrTimeout = errors.New("timeout")
	// ErrCancelled marks work abandoned because the tracked identity moved
	// on. Never surfaced as an error.
	ErrCancelled = errors.New("cancelled")
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRequest
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsNotFound reports whether err is an expected miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCancelled reports whether err represents abandoned work, including
// context cancellation raised below a component boundary.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err exhausted a polling or wait budget.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCapture reports whether err came from the frame sampler or the host
// capture primitive.
func IsCapture(err error) bool { return errors.Is(err, ErrCapture) }

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
