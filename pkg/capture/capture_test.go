package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/sac/pkg/activity"
)

type fakeGrabber struct {
	img *image.RGBA
	err error
}

func (g *fakeGrabber) Grab() (*image.RGBA, error) { return g.img, g.err }

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, c)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestScreenCapture(t *testing.T) {
	var _ activity.Capturer = (*Screen)(nil)

	s := NewScreen(&fakeGrabber{img: image.NewRGBA(image.Rect(0, 0, 3, 3))}, "x11")
	frame, err := s.Capture(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "x11", frame.Source)
	assert.False(t, frame.CapturedAt.IsZero())
	assert.Equal(t, 3, frame.Image.Bounds().Dx())
}

func TestScreenCaptureError(t *testing.T) {
	s := NewScreen(&fakeGrabber{err: errors.New("BadMatch")}, "")

	_, err := s.Capture(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadMatch")
}

func TestScreenCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScreen(&fakeGrabber{}, "").Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFolderReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "002.png"), color.White)
	writePNG(t, filepath.Join(dir, "001.PNG"), color.Black)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0755))

	f, err := NewFolder(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	first, err := f.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "folder:001.PNG", first.Source)

	second, err := f.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "folder:002.png", second.Source)

	_, err = f.Capture(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestFolderLoop(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), color.White)

	f, err := NewFolder(dir, true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		frame, err := f.Capture(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "folder:a.png", frame.Source)
	}
}

func TestFolderEmpty(t *testing.T) {
	_, err := NewFolder(t.TempDir(), false)
	assert.Error(t, err)

	_, err = NewFolder(filepath.Join(t.TempDir(), "missing"), false)
	assert.Error(t, err)
}

func TestFolderCorruptImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.jpg"), []byte("not a jpeg"), 0644))

	f, err := NewFolder(dir, false)
	require.NoError(t, err)

	_, err = f.Capture(context.Background())
	assert.Error(t, err)
}
