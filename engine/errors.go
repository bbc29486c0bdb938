package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameters marks malformed call arguments, rejected
	// before any variant runs.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrDeviceUnavailable marks an offloaded variant whose device
	// vanished or failed to build its program.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrVariantUnavailable is returned when a forced variant tag is
	// unknown or not applicable on the current hardware.
	ErrVariantUnavailable = errors.New("variant unavailable")

	// ErrNoVariantSucceeded is returned when every applicable variant
	// failed.
	ErrNoVariantSucceeded = errors.New("no variant succeeded")
)

// ComputeError tags an execution failure with the variant it came from
// so the selector can fall back and the sweep can skip it.
type ComputeError struct {
	Variant Tag
	Err     error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("variant %s: %v", e.Variant, e.Err)
}

func (e *ComputeError) Unwrap() error {
	return e.Err
}
