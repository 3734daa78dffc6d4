package activity

import (
	"time"

	"go.uber.org/zap"
)

// Config controls the cycle cadence.
type Config struct {
	Interval      time.Duration // time between cycle starts
	BatchSize     int           // frames captured per cycle
	FrameInterval time.Duration // pause between frames of one batch
	FailFast      bool          // return the first failure from Start instead of skipping the cycle
}

// DefaultConfig returns the default cadence: one frame every 10 seconds.
func DefaultConfig() Config {
	return Config{
		Interval:      10 * time.Second,
		BatchSize:     1,
		FrameInterval: 500 * time.Millisecond,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.FrameInterval < 0 {
		c.FrameInterval = 0
	}
	return c
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithLogger sets the logger used for cycle reports. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithErrorHandler receives every cycle failure and callback failure.
// It runs on the loop goroutine.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Monitor) {
		m.onError = fn
	}
}

// WithObserver is called after every cycle, successful or not.
func WithObserver(fn func(Cycle)) Option {
	return func(m *Monitor) {
		if fn != nil {
			m.observers = append(m.observers, fn)
		}
	}
}

// WithDispatcher shares an existing dispatcher between monitors.
func WithDispatcher(d *Dispatcher) Option {
	return func(m *Monitor) {
		if d != nil {
			m.dispatcher = d
		}
	}
}
