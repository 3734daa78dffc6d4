package capture

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/sac/pkg/activity"
)

// ErrExhausted is returned once every file of a non-looping folder was replayed.
var ErrExhausted = errors.New("replay folder exhausted")

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Folder replays image files from a directory in lexical order. It stands in
// for the live screen when testing classifiers against recorded sessions.
type Folder struct {
	dir  string
	loop bool

	mu    sync.Mutex
	files []string
	next  int
}

// NewFolder lists the .png, .jpg and .jpeg files of dir. With loop set the
// replay restarts at the first file after the last one.
func NewFolder(dir string, loop bool) (*Folder, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read replay folder %s", dir)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no images found in %s", dir)
	}
	sort.Strings(files)

	return &Folder{dir: dir, loop: loop, files: files}, nil
}

// Len returns the number of replayable files.
func (f *Folder) Len() int {
	return len(f.files)
}

// Capture implements activity.Capturer.
func (f *Folder) Capture(ctx context.Context) (activity.Frame, error) {
	if err := ctx.Err(); err != nil {
		return activity.Frame{}, err
	}

	path, err := f.advance()
	if err != nil {
		return activity.Frame{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		return activity.Frame{}, errors.Wrap(err, "failed to open replay image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return activity.Frame{}, errors.Wrapf(err, "failed to decode %s", filepath.Base(path))
	}

	return activity.Frame{
		Image:      img,
		CapturedAt: time.Now(),
		Source:     "folder:" + filepath.Base(path),
	}, nil
}

func (f *Folder) advance() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.next >= len(f.files) {
		if !f.loop {
			return "", ErrExhausted
		}
		f.next = 0
	}
	path := f.files[f.next]
	f.next++
	return path, nil
}
