package detector

import (
	"fmt"
	"os"
	"time"

	"github.com/actionsum/sac/pkg/integrations/x11"
	"github.com/actionsum/sac/pkg/window"
)

// New opens the display for the current session. Wayland sessions are
// served through XWayland when $DISPLAY is set.
func New(idleThreshold time.Duration) (window.Display, error) {
	switch server := DetectDisplayServer(); server {
	case "x11":
		return x11.Open(idleThreshold)
	case "wayland":
		if os.Getenv("DISPLAY") == "" {
			return nil, fmt.Errorf("wayland session without XWayland ($DISPLAY unset) is not supported")
		}
		return x11.Open(idleThreshold)
	default:
		return nil, fmt.Errorf("no display server detected")
	}
}

func DetectDisplayServer() string {
	sessionType := os.Getenv("XDG_SESSION_TYPE")
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	x11Display := os.Getenv("DISPLAY")

	if sessionType == "wayland" || waylandDisplay != "" {
		return "wayland"
	}

	if sessionType == "x11" || x11Display != "" {
		return "x11"
	}

	return "unknown"
}
