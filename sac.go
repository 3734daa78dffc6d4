// Package sac classifies what is on screen and hands the label to callbacks.
//
//	sac.Sac(func(activity string) { fmt.Println(activity) })
//
// Sac registers on a process-wide default monitor and starts it on first
// use. The default monitor is configured from SAC_* environment variables
// (see internal/config) and captures the X11 screen, labelling it from the
// focused window. Cycle failures go to the log configured by SAC_LOG_*. Programs that need more control build their own
// activity.Monitor.
package sac

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/actionsum/sac/internal/config"
	"github.com/actionsum/sac/internal/logging"
	"github.com/actionsum/sac/internal/tracker"
	"github.com/actionsum/sac/pkg/activity"
)

var (
	mu      sync.Mutex
	def     *activity.Monitor
	release func() error
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
)

// Sac registers cb on the default monitor and starts the monitor if it is
// not running yet.
func Sac(cb activity.Callback) (*activity.Registration, error) {
	m, err := Default()
	if err != nil {
		return nil, err
	}

	reg, err := m.Register(cb)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	if def == m && !started {
		start(m)
	}
	return reg, nil
}

// start runs m in the background. Callers hold mu.
func start(m *activity.Monitor) {
	ctx, cancelFn := context.WithCancel(context.Background())
	exited := make(chan struct{})
	started = true
	cancel = cancelFn
	done = exited

	go func() {
		defer close(exited)
		_ = m.Start(ctx)

		mu.Lock()
		if def == m {
			started = false
		}
		mu.Unlock()
	}()
}

// Default returns the default monitor, building it on first call.
func Default() (*activity.Monitor, error) {
	mu.Lock()
	defer mu.Unlock()

	if def != nil {
		return def, nil
	}

	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	p, err := tracker.NewPipeline(context.Background(), cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	def = activity.NewMonitor(activity.Config{
		Interval:      cfg.Monitor.Interval,
		BatchSize:     cfg.Monitor.BatchSize,
		FrameInterval: cfg.Monitor.FrameInterval,
		FailFast:      cfg.Monitor.FailFast,
	}, p.Capturer, p.Classifier, activity.WithLogger(logger.Named("monitor")))
	release = func() error {
		err := p.Close()
		_ = logger.Sync()
		return err
	}

	return def, nil
}

// SetDefault replaces the default monitor. A previous default started by Sac
// is shut down first. m is not started until the next Sac call.
func SetDefault(m *activity.Monitor) {
	Shutdown()

	mu.Lock()
	def = m
	mu.Unlock()
}

// Shutdown stops the default monitor, waiting for its loop to exit, and
// releases the display it opened. No callback runs after Shutdown returns.
// The next Sac call builds a fresh monitor.
func Shutdown() {
	mu.Lock()
	m, rel, cancelFn, exited := def, release, cancel, done
	def, release, cancel, done, started = nil, nil, nil, nil, false
	mu.Unlock()

	if cancelFn != nil {
		cancelFn()
	}
	if m != nil {
		m.Stop()
	}
	// Stop is a no-op while the loop goroutine has not marked the monitor
	// running yet; the goroutine itself is the only reliable signal.
	if exited != nil {
		<-exited
	}
	if rel != nil {
		_ = rel()
	}
}
