package x11

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/actionsum/sac/pkg/window"
)

func TestDetectorInterface(t *testing.T) {
	var _ window.Display = (*Display)(nil)
}

func TestSplitWMClass(t *testing.T) {
	tests := []struct {
		name         string
		input        []byte
		wantInstance string
		wantClass    string
	}{
		{
			name:         "Standard format",
			input:        []byte("Navigator\x00firefox\x00"),
			wantInstance: "Navigator",
			wantClass:    "firefox",
		},
		{
			name:         "Single class",
			input:        []byte("kitty\x00kitty\x00"),
			wantInstance: "kitty",
			wantClass:    "kitty",
		},
		{
			name:         "Instance only",
			input:        []byte("xterm"),
			wantInstance: "xterm",
			wantClass:    "",
		},
		{
			name:         "Empty",
			input:        nil,
			wantInstance: "",
			wantClass:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance, class := splitWMClass(tt.input)
			if instance != tt.wantInstance || class != tt.wantClass {
				t.Errorf("splitWMClass(%q) = (%q, %q), want (%q, %q)",
					tt.input, instance, class, tt.wantInstance, tt.wantClass)
			}
		})
	}
}

func TestBGRXToRGBA(t *testing.T) {
	// two pixels: pure blue, pure red
	data := []byte{
		0xff, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xff, 0x00,
	}

	img, err := bgrxToRGBA(data, 2, 1)
	if err != nil {
		t.Fatalf("bgrxToRGBA() error: %v", err)
	}

	r, g, b, a := img.At(0, 0).RGBA()
	if r != 0 || g != 0 || b != 0xffff || a != 0xffff {
		t.Errorf("pixel 0 = (%d,%d,%d,%d), want blue", r, g, b, a)
	}
	r, _, b, _ = img.At(1, 0).RGBA()
	if r != 0xffff || b != 0 {
		t.Errorf("pixel 1 = (r=%d,b=%d), want red", r, b)
	}
}

func TestBGRXToRGBAShortData(t *testing.T) {
	if _, err := bgrxToRGBA(make([]byte, 7), 2, 1); err == nil {
		t.Error("bgrxToRGBA() with short data returned nil error")
	}
}

func writeProc(t *testing.T, root, pid, comm string) {
	t.Helper()
	dir := filepath.Join(root, pid)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(comm+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessName(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "42", "code")

	if got := processName(root, 42); got != "code" {
		t.Errorf("processName() = %q, want code", got)
	}
	if got := processName(root, 43); got != "" {
		t.Errorf("processName() for missing pid = %q, want empty", got)
	}
}

func TestLockerRunning(t *testing.T) {
	root := t.TempDir()
	writeProc(t, root, "1", "systemd")
	writeProc(t, root, "200", "bash")

	if lockerRunning(root) {
		t.Error("lockerRunning() = true without a locker process")
	}

	writeProc(t, root, "300", "i3lock")
	if !lockerRunning(root) {
		t.Error("lockerRunning() = false with i3lock running")
	}
}

func TestOpen(t *testing.T) {
	if os.Getenv("DISPLAY") == "" {
		t.Skip("X11 display not available")
	}

	d, err := Open(5 * time.Minute)
	if err != nil {
		t.Skipf("Open() error (may be expected): %v", err)
	}
	defer d.Close()

	if d.GetDisplayServer() != "x11" {
		t.Errorf("GetDisplayServer() = %s, want x11", d.GetDisplayServer())
	}

	img, err := d.Grab()
	if err != nil {
		t.Logf("Grab() error: %v", err)
	} else {
		w, h := d.Size()
		if img.Bounds().Dx() != w || img.Bounds().Dy() != h {
			t.Errorf("Grab() bounds = %v, want %dx%d", img.Bounds(), w, h)
		}
	}

	if info, err := d.GetFocusedWindow(); err != nil {
		t.Logf("GetFocusedWindow() error: %v", err)
	} else {
		t.Logf("Focused: %s - %s", info.AppName, info.WindowTitle)
	}
}
