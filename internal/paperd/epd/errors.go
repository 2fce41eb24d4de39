package epd

import (
	"fmt"

	"github.com/paperfeed/paperfeed/internal/paperd/errors"
)

// HardwareError wraps a panel-level failure with the operation that caused it
type HardwareError struct {
	// Device identifies the panel variant
	Device string
	// Op is the hardware operation that failed (init, render, clear, sleep)
	Op string
	// Err is the underlying cause
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Device, e.Op, e.Err)
}

// Unwrap always chains to the hardware sentinel so callers can classify
// failures without knowing the variant
func (e *HardwareError) Unwrap() error {
	return errors.ErrHardware
}

// NewHardwareError builds a HardwareError for the given device and operation
func NewHardwareError(device, op string, err error) *HardwareError {
	return &HardwareError{Device: device, Op: op, Err: err}
}

// ErrUnsupportedVariant indicates a panel name outside the closed variant set
type ErrUnsupportedVariant struct {
	// Variant is the rejected name
	Variant string
	// Supported lists the accepted names
	Supported []string
}

func (e *ErrUnsupportedVariant) Error() string {
	return fmt.Sprintf("unsupported panel variant %q (supported: %v)", e.Variant, e.Supported)
}
