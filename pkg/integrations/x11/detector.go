package x11

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"
	"github.com/pkg/errors"

	"github.com/actionsum/sac/pkg/window"
)

const displayServer = "x11"

// screensaverStateOn is the MIT-SCREEN-SAVER "on" state.
const screensaverStateOn = 1

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_WM_NAME",
	"_NET_WM_PID",
	"WM_NAME",
	"WM_CLASS",
	"UTF8_STRING",
}

// Processes whose presence means the session is locked.
var lockers = []string{
	"gnome-screensaver-dialog",
	"kscreenlocker_greet",
	"i3lock",
	"slock",
	"xscreensaver",
	"xsecurelock",
	"swaylock",
}

// Display is a connection to an X server implementing window.Display.
type Display struct {
	conn          *xgb.Conn
	root          xproto.Window
	width         uint16
	height        uint16
	atoms         map[string]xproto.Atom
	hasSaver      bool
	idleThreshold time.Duration
	procRoot      string
}

// Open connects to the X server named by $DISPLAY.
func Open(idleThreshold time.Duration) (*Display, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to X server")
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	d := &Display{
		conn:          conn,
		root:          screen.Root,
		width:         screen.WidthInPixels,
		height:        screen.HeightInPixels,
		atoms:         make(map[string]xproto.Atom, len(atomNames)),
		idleThreshold: idleThreshold,
		procRoot:      "/proc",
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to intern atom %s", name)
		}
		d.atoms[name] = reply.Atom
	}

	// Idle time needs MIT-SCREEN-SAVER; without it the display is never idle.
	d.hasSaver = screensaver.Init(conn) == nil

	return d, nil
}

// GetDisplayServer returns "x11"
func (d *Display) GetDisplayServer() string {
	return displayServer
}

// Size returns the root window size in pixels.
func (d *Display) Size() (int, int) {
	return int(d.width), int(d.height)
}

// Grab captures the root window as RGBA.
func (d *Display) Grab() (*image.RGBA, error) {
	reply, err := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap, xproto.Drawable(d.root),
		0, 0, d.width, d.height, 0xffffffff).Reply()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get root window image")
	}
	if reply.Depth != 24 && reply.Depth != 32 {
		return nil, fmt.Errorf("unsupported screen depth %d", reply.Depth)
	}
	return bgrxToRGBA(reply.Data, int(d.width), int(d.height))
}

// bgrxToRGBA converts a 32 bits per pixel ZPixmap (little-endian BGRX) to RGBA.
func bgrxToRGBA(data []byte, width, height int) (*image.RGBA, error) {
	need := width * height * 4
	if len(data) < need {
		return nil, fmt.Errorf("short image data: got %d bytes, want %d", len(data), need)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < need; i += 4 {
		img.Pix[i] = data[i+2]
		img.Pix[i+1] = data[i+1]
		img.Pix[i+2] = data[i]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}

// GetFocusedWindow returns information about the currently focused window
func (d *Display) GetFocusedWindow() (*window.WindowInfo, error) {
	win, err := d.activeWindow()
	if err != nil {
		return nil, err
	}

	instance, class := d.windowClass(win)
	info := &window.WindowInfo{
		AppName:       class,
		Instance:      instance,
		WindowTitle:   d.windowName(win),
		PID:           d.windowPID(win),
		DisplayServer: displayServer,
	}
	if info.PID != 0 {
		info.ProcessName = processName(d.procRoot, info.PID)
	}
	if info.AppName == "" {
		info.AppName = instance
	}
	if info.AppName == "" {
		info.AppName = info.ProcessName
	}
	return info, nil
}

func (d *Display) property(win xproto.Window, atom, typ xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(d.conn, false, win, atom, typ, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (d *Display) activeFromProperty() xproto.Window {
	data, err := d.property(d.root, d.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (d *Display) activeFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(d.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (d *Display) topLevel(win xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(d.conn, win).Reply()
		if err != nil || reply.Parent == d.root || reply.Parent == 0 {
			return win
		}
		win = reply.Parent
	}
}

func (d *Display) hasName(win xproto.Window) bool {
	if data, _ := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 1); len(data) > 0 {
		return true
	}
	data, _ := d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 1)
	return len(data) > 0
}

// activeWindow retries briefly because focus can be in flux during a switch.
func (d *Display) activeWindow() (xproto.Window, error) {
	for attempt := 0; attempt < 3; attempt++ {
		if win := d.activeFromProperty(); win != 0 && d.hasName(win) {
			return win, nil
		}
		if win := d.activeFromInputFocus(); win != 0 && win != d.root {
			if top := d.topLevel(win); top != 0 && d.hasName(top) {
				return top, nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return 0, errors.New("no active x11 window found")
}

func (d *Display) windowName(win xproto.Window) string {
	if data, err := d.property(win, d.atoms["_NET_WM_NAME"], d.atoms["UTF8_STRING"], 256); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	if data, err := d.property(win, d.atoms["WM_NAME"], xproto.AtomString, 256); err == nil && len(data) > 0 {
		return strings.TrimRight(string(data), "\x00")
	}
	return ""
}

func (d *Display) windowClass(win xproto.Window) (string, string) {
	data, err := d.property(win, d.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil {
		return "", ""
	}
	return splitWMClass(data)
}

// splitWMClass splits the NUL separated WM_CLASS value into instance and class.
func splitWMClass(data []byte) (string, string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	var instance, class string
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

func (d *Display) windowPID(win xproto.Window) uint32 {
	data, err := d.property(win, d.atoms["_NET_WM_PID"], xproto.AtomCardinal, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

func processName(procRoot string, pid uint32) string {
	data, err := os.ReadFile(filepath.Join(procRoot, strconv.FormatUint(uint64(pid), 10), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// GetIdleInfo returns system idle/lock information
func (d *Display) GetIdleInfo() (*window.IdleInfo, error) {
	info := &window.IdleInfo{}

	if d.hasSaver {
		reply, err := screensaver.QueryInfo(d.conn, xproto.Drawable(d.root)).Reply()
		if err != nil {
			return nil, errors.Wrap(err, "failed to query screensaver info")
		}
		info.IdleTime = int64(reply.MsSinceUserInput / 1000)
		info.IsLocked = reply.State == screensaverStateOn
	}

	if !info.IsLocked {
		info.IsLocked = lockerRunning(d.procRoot)
	}
	if d.idleThreshold > 0 {
		info.IsIdle = info.IdleTime > int64(d.idleThreshold.Seconds())
	}
	return info, nil
}

func lockerRunning(procRoot string) bool {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.ParseUint(e.Name(), 10, 32)
		if err != nil {
			continue
		}
		name := processName(procRoot, uint32(pid))
		for _, l := range lockers {
			if name == l {
				return true
			}
		}
	}
	return false
}

// Close cleans up resources
func (d *Display) Close() error {
	d.conn.Close()
	return nil
}
