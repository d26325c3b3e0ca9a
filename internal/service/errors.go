package service

import (
	"errors"
	"fmt"
)

// ValidationError rejects a shorten request. Reason is safe to show to callers.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	// ErrURLRequired is returned for an empty or blank target
	ErrURLRequired = &ValidationError{Reason: "url is required"}
	// ErrCrossOrigin is returned for a target on another origin
	ErrCrossOrigin = &ValidationError{Reason: "only same-origin URLs are allowed"}

	// ErrAllocationExhausted is returned when every attempt collided with a live code. Callers may retry.
	ErrAllocationExhausted = errors.New("could not allocate short code, try again")
	// ErrNotFound is returned when a code has no live mapping
	ErrNotFound = errors.New("short link not found")
	// ErrStoreUnavailable wraps any storage failure other than a miss
	ErrStoreUnavailable = errors.New("storage unavailable")
)

// IsValidation reports whether err is a ValidationError and returns it
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
