package runner

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrArgumentCountMismatch is returned when the arguments given don't match the number of addressable devices
	// (or the number of parameters of the program).
	ErrArgumentCountMismatch = errors.New("argument count mismatch")

	// ErrShapeMismatch is returned when an argument doesn't match its parameter shape, or when a parameter
	// or output index is out of range.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidFlattenRequest is returned when arguments are to be flattened but the program doesn't take
	// exactly one tuple parameter.
	ErrInvalidFlattenRequest = errors.New("invalid flatten request")

	// ErrExecution matches (errors.Is) any ExecutionError.
	ErrExecution = errors.New("execution failed")

	// ErrTransfer matches (errors.Is) any TransferError.
	ErrTransfer = errors.New("transfer failed")
)

// ExecutionError is the first failure reported by the execution of a repeat, on any device.
type ExecutionError struct {
	// Repeat is the 0-based iteration that failed.
	Repeat int
	Err    error
}

// Error implements error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of repeat #%d failed: %v", e.Repeat, e.Err)
}

// Unwrap returns the failure reported by the device runtime.
func (e *ExecutionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExecution) match.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// TransferError is the first failure of a device-to-host transfer of the outputs.
type TransferError struct {
	DeviceID int
	Err      error
}

// Error implements error.
func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of outputs of device #%d failed: %v", e.DeviceID, e.Err)
}

// Unwrap returns the failure reported by the device runtime.
func (e *TransferError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrTransfer) match.
func (e *TransferError) Is(target error) bool { return target == ErrTransfer }
