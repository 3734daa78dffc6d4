package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the run state of a Monitor.
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Stats are counters accumulated over the life of a Monitor.
type Stats struct {
	Cycles                 uint64    `json:"cycles"`
	Dispatched             uint64    `json:"dispatched"`
	CaptureFailures        uint64    `json:"capture_failures"`
	ClassificationFailures uint64    `json:"classification_failures"`
	CallbackFailures       uint64    `json:"callback_failures"`
	LastLabel              string    `json:"last_label,omitempty"`
	LastCycleAt            time.Time `json:"last_cycle_at,omitempty"`
}

// Monitor runs capture -> classify -> dispatch cycles on a fixed interval.
//
// Stop is graceful: a cycle already in progress, including its dispatch,
// completes before the loop exits. Cancelling the context passed to Start
// is forwarded to the capturer and classifier and ends the loop without
// waiting for the next tick.
type Monitor struct {
	cfg        Config
	capturer   Capturer
	classifier Classifier
	dispatcher *Dispatcher
	logger     *zap.Logger
	onError    func(error)
	observers  []func(Cycle)

	mu      sync.Mutex
	running bool
	stop    func()
	done    chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

// NewMonitor creates a stopped monitor.
func NewMonitor(cfg Config, capturer Capturer, classifier Classifier, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:        cfg.normalized(),
		capturer:   capturer,
		classifier: classifier,
		dispatcher: NewDispatcher(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// Register adds a callback. It does not start the monitor.
func (m *Monitor) Register(cb Callback) (*Registration, error) {
	return m.dispatcher.Register(cb)
}

// RegisterWithError adds a callback that may return an error.
func (m *Monitor) RegisterWithError(cb ErrorCallback) (*Registration, error) {
	return m.dispatcher.RegisterWithError(cb)
}

// Dispatcher exposes the callback set.
func (m *Monitor) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// State reports whether the loop is running.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return StateRunning
	}
	return StateStopped
}

// Stats returns a copy of the counters.
func (m *Monitor) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// Start runs the loop until Stop is called or ctx is done. The first cycle
// runs immediately. Start returns nil after Stop, ctx.Err() after
// cancellation, and the failing cycle's error when FailFast is set.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	stopCh := make(chan struct{})
	done := make(chan struct{})
	m.running = true
	m.stop = sync.OnceFunc(func() { close(stopCh) })
	m.done = done
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		close(done)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.logger.Info("activity monitor started",
		zap.Duration("interval", m.cfg.Interval),
		zap.Int("batch_size", m.cfg.BatchSize))

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	if err := m.RunOnce(ctx); err != nil && m.cfg.FailFast {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("activity monitor stopped by context")
			return ctx.Err()

		case <-stopCh:
			m.logger.Info("activity monitor stopped")
			return nil

		case <-ticker.C:
			// A tick and a stop request may be ready together; stop wins.
			select {
			case <-stopCh:
				m.logger.Info("activity monitor stopped")
				return nil
			default:
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := m.RunOnce(ctx); err != nil && m.cfg.FailFast {
				return err
			}
		}
	}
}

// Stop asks the loop to exit and waits for the in-flight cycle to finish.
// It is a no-op when the monitor is not running. Stop must not be called
// synchronously from a callback; use `go m.Stop()` there.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	stop, done := m.stop, m.done
	m.mu.Unlock()

	stop()
	<-done
}

// RunCycle captures a batch and classifies it without dispatching.
// Errors wrap ErrCaptureFailed or ErrClassificationFailed.
func (m *Monitor) RunCycle(ctx context.Context) (string, error) {
	label, _, err := m.runCycle(ctx)
	return label, err
}

func (m *Monitor) runCycle(ctx context.Context) (string, int, error) {
	frames := make([]Frame, 0, m.cfg.BatchSize)
	for i := 0; i < m.cfg.BatchSize; i++ {
		if i > 0 && m.cfg.FrameInterval > 0 {
			if err := sleep(ctx, m.cfg.FrameInterval); err != nil {
				return "", len(frames), captureError(err)
			}
		}
		frame, err := m.capture(ctx)
		if err != nil {
			return "", len(frames), captureError(err)
		}
		if frame.CapturedAt.IsZero() {
			frame.CapturedAt = time.Now()
		}
		frames = append(frames, frame)
	}

	label, err := m.classify(ctx, frames)
	if err != nil {
		return "", len(frames), classificationError(err)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return "", len(frames), classificationError(errors.New("empty label"))
	}
	return label, len(frames), nil
}

func (m *Monitor) capture(ctx context.Context) (frame Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return m.capturer.Capture(ctx)
}

func (m *Monitor) classify(ctx context.Context, frames []Frame) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return m.classifier.Classify(ctx, frames)
}

// RunOnce performs one full cycle: capture, classify and dispatch.
// Capture and classification failures skip dispatch and are returned.
// Callback failures are reported but only returned when FailFast is set.
// A cycle interrupted by ctx is not a failure: it is dropped without being
// counted or reported and RunOnce returns ctx.Err().
func (m *Monitor) RunOnce(ctx context.Context) error {
	c := Cycle{ID: uuid.NewString(), StartedAt: time.Now()}

	label, frames, err := m.runCycle(ctx)
	c.Label = label
	c.Frames = frames
	if err != nil && ctx.Err() != nil {
		m.logger.Debug("activity cycle interrupted", zap.String("cycle", c.ID), zap.Error(err))
		return ctx.Err()
	}
	if err != nil {
		c.Err = err
		c.Duration = time.Since(c.StartedAt)
		m.recordFailure(err)
		m.logger.Warn("activity cycle skipped", zap.String("cycle", c.ID), zap.Error(err))
		m.report(err)
		m.notify(c)
		return err
	}

	c.CallbackErrors = m.dispatcher.Dispatch(label)
	c.Duration = time.Since(c.StartedAt)
	m.recordSuccess(label, len(c.CallbackErrors), c.StartedAt)

	m.logger.Debug("activity dispatched",
		zap.String("cycle", c.ID),
		zap.String("activity", label),
		zap.Int("frames", frames),
		zap.Duration("took", c.Duration))

	for _, cbErr := range c.CallbackErrors {
		m.logger.Error("activity callback failed", zap.String("cycle", c.ID), zap.Error(cbErr))
		m.report(cbErr)
	}
	m.notify(c)

	if len(c.CallbackErrors) > 0 && m.cfg.FailFast {
		return fmt.Errorf("cycle %s: %w", c.ID, errors.Join(c.CallbackErrors...))
	}
	return nil
}

func (m *Monitor) report(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}

func (m *Monitor) notify(c Cycle) {
	for _, obs := range m.observers {
		obs(c)
	}
}

func (m *Monitor) recordFailure(err error) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	m.stats.Cycles++
	m.stats.LastCycleAt = time.Now()
	switch {
	case errors.Is(err, ErrCaptureFailed):
		m.stats.CaptureFailures++
	case errors.Is(err, ErrClassificationFailed):
		m.stats.ClassificationFailures++
	}
}

func (m *Monitor) recordSuccess(label string, callbackFailures int, at time.Time) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	m.stats.Cycles++
	m.stats.Dispatched++
	m.stats.CallbackFailures += uint64(callbackFailures)
	m.stats.LastLabel = label
	m.stats.LastCycleAt = at
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
