// Package capture provides activity.Capturer implementations: the live
// screen through a window.Grabber and a replay folder of image files.
package capture

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/sac/pkg/activity"
	"github.com/actionsum/sac/pkg/window"
)

// Screen captures the live screen.
type Screen struct {
	grabber window.Grabber
	source  string
}

// NewScreen wraps a grabber such as an x11.Display.
func NewScreen(grabber window.Grabber, source string) *Screen {
	if source == "" {
		source = "screen"
	}
	return &Screen{grabber: grabber, source: source}
}

// Capture implements activity.Capturer.
func (s *Screen) Capture(ctx context.Context) (activity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return activity.Frame{}, err
	}
	img, err := s.grabber.Grab()
	if err != nil {
		return activity.Frame{}, errors.Wrap(err, "failed to grab screen")
	}
	return activity.Frame{Image: img, CapturedAt: time.Now(), Source: s.source}, nil
}
