package activity

import (
	"errors"
	"fmt"
)

var (
	// ErrCaptureFailed marks a cycle skipped because no frame could be taken.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrClassificationFailed marks a cycle skipped because no usable label was produced.
	ErrClassificationFailed = errors.New("classification failed")

	ErrAlreadyRunning = errors.New("monitor is already running")
	ErrNilCallback    = errors.New("callback is nil")
)

// CallbackError wraps a failure raised by one registered callback.
type CallbackError struct {
	Index int    // position in the dispatch snapshot
	Label string // label being delivered
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %d failed for activity %q: %v", e.Index, e.Label, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// PanicError carries the value recovered from a panicking callback,
// capturer or classifier.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func captureError(err error) error {
	return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
}

func classificationError(err error) error {
	return fmt.Errorf("%w: %w", ErrClassificationFailed, err)
}
