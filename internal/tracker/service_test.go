package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/sac/internal/config"
	"github.com/actionsum/sac/pkg/activity"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Monitor.Interval = 20 * time.Millisecond
	cfg.Monitor.FrameInterval = 0
	cfg.Database.Path = filepath.Join(t.TempDir(), "sac.db")
	return cfg
}

func fakePipeline(labels ...string) *Pipeline {
	var mu sync.Mutex
	i := 0
	return &Pipeline{
		Source: "test",
		Capturer: activity.CaptureFunc(func(context.Context) (activity.Frame, error) {
			return activity.Frame{Source: "test"}, nil
		}),
		Classifier: activity.ClassifierFunc(func(context.Context, []activity.Frame) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if i >= len(labels) {
				return "", fmt.Errorf("script exhausted")
			}
			l := labels[i]
			i++
			return l, nil
		}),
	}
}

func TestRunOnceRecordsActivity(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServiceWithPipeline(cfg, nil, fakePipeline("Coding"))
	require.NoError(t, err)
	defer s.Close()

	var got []string
	_, err = s.Monitor().Register(func(a string) { got = append(got, a) })
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"Coding"}, got)

	latest, err := s.Repository().GetLatest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "coding", latest.Label)
	assert.Equal(t, "test", latest.Source)
	assert.NotEmpty(t, latest.CycleID)
}

func TestFailedCycleIsLoggedToDatabase(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServiceWithPipeline(cfg, nil, fakePipeline())
	require.NoError(t, err)
	defer s.Close()

	err = s.RunOnce(context.Background())
	require.ErrorIs(t, err, activity.ErrClassificationFailed)

	n, err := s.Repository().CountErrorsBetween(time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDatabaseDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Enabled = false

	s, err := NewServiceWithPipeline(cfg, nil, fakePipeline("coding"))
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Repository())
	require.NoError(t, s.RunOnce(context.Background()))
}

func TestStartStop(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewServiceWithPipeline(cfg, nil, fakePipeline("a", "b", "c", "d", "e", "f", "g", "h"))
	require.NoError(t, err)
	defer s.Close()

	seen := make(chan string, 16)
	_, err = s.Monitor().Register(func(a string) { seen <- a })
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	assert.Equal(t, "a", <-seen)
	assert.Equal(t, "b", <-seen)

	s.Stop()
	require.NoError(t, <-errCh)
	assert.Equal(t, activity.StateStopped, s.Monitor().State())
}

func TestNewPipelineFolderRequiresFrames(t *testing.T) {
	cfg := testConfig(t)
	cfg.Capture.Source = "folder"
	cfg.Capture.Folder = t.TempDir()
	cfg.Classifier.Kind = "genai"
	cfg.Classifier.APIKey = "k"

	_, err := NewPipeline(context.Background(), cfg)
	assert.Error(t, err)
}
