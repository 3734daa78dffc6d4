package window

import "image"

// WindowInfo represents information about the currently focused window
type WindowInfo struct {
	AppName       string // WM_CLASS class, falls back to the instance name
	Instance      string // WM_CLASS instance
	WindowTitle   string
	ProcessName   string
	PID           uint32
	DisplayServer string // "x11"
}

// IdleInfo represents system idle/lock state
type IdleInfo struct {
	IsIdle   bool
	IsLocked bool
	IdleTime int64 // Idle time in seconds
}

// Detector is the interface that all window detection implementations must satisfy
type Detector interface {
	// GetFocusedWindow returns information about the currently focused window
	GetFocusedWindow() (*WindowInfo, error)

	// GetIdleInfo returns information about system idle/lock state
	GetIdleInfo() (*IdleInfo, error)

	// GetDisplayServer returns the display server type
	GetDisplayServer() string

	// Close cleans up any resources used by the detector
	Close() error
}

// Grabber captures the whole screen.
type Grabber interface {
	Grab() (*image.RGBA, error)
}

// Display is a display server connection that can both describe the
// focused window and capture the screen.
type Display interface {
	Detector
	Grabber
}
