// Package activity implements the capture, classify and dispatch cycle.
//
// A Monitor owns one Capturer, one Classifier and a Dispatcher. On every
// tick it captures a batch of frames, asks the classifier for a single
// activity label and delivers that label to every registered callback in
// registration order.
package activity

import (
	"context"
	"image"
	"time"
)

// Frame is one screen snapshot.
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
	Source     string // "x11", "folder:<name>", ...
}

// Capturer produces screen frames.
type Capturer interface {
	Capture(ctx context.Context) (Frame, error)
}

// Classifier turns a batch of frames into one activity label.
type Classifier interface {
	Classify(ctx context.Context, frames []Frame) (string, error)
}

// CaptureFunc adapts a function to the Capturer interface.
type CaptureFunc func(ctx context.Context) (Frame, error)

func (f CaptureFunc) Capture(ctx context.Context) (Frame, error) { return f(ctx) }

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, frames []Frame) (string, error)

func (f ClassifierFunc) Classify(ctx context.Context, frames []Frame) (string, error) {
	return f(ctx, frames)
}

// Callback receives the activity label produced by a cycle.
type Callback func(activity string)

// ErrorCallback is a callback that can report failure. Returned errors are
// isolated exactly like panics.
type ErrorCallback func(activity string) error

// Cycle describes one capture -> classify -> dispatch round.
type Cycle struct {
	ID             string
	Label          string
	Frames         int
	StartedAt      time.Time
	Duration       time.Duration
	Err            error   // capture or classification failure; nothing was dispatched
	CallbackErrors []error // *CallbackError values from dispatch
}

// Succeeded reports whether the cycle produced and dispatched a label.
func (c Cycle) Succeeded() bool {
	return c.Err == nil
}
