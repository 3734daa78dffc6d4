// Package sink holds the consumers of activity labels: the SQLite recorder,
// the Redis publisher and the log sink.
package sink

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/actionsum/sac/internal/models"
	"github.com/actionsum/sac/pkg/activity"
)

// Error kinds stored on models.ErrorLog.
const (
	KindCapture        = "capture"
	KindClassification = "classification"
	KindCallback       = "callback"
)

// ActivityStore is the subset of the repository the recorder writes to.
type ActivityStore interface {
	Create(record *models.ActivityRecord) error
	CreateErrorLog(errorLog *models.ErrorLog) error
}

// Recorder persists every cycle: labels as activity records and failures as
// error logs. It is attached to a monitor with activity.WithObserver.
type Recorder struct {
	store    ActivityStore
	interval time.Duration
	source   string
	logger   *zap.Logger
}

// NewRecorder creates a recorder. Each record is credited with interval
// seconds of activity.
func NewRecorder(store ActivityStore, interval time.Duration, source string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:    store,
		interval: interval,
		source:   source,
		logger:   logger,
	}
}

// Observe stores one finished cycle.
func (r *Recorder) Observe(c activity.Cycle) {
	if !c.Succeeded() {
		r.recordError(c.StartedAt, kindOf(c.Err), c.Err)
		return
	}

	record := &models.ActivityRecord{
		CycleID:   c.ID,
		Timestamp: c.StartedAt,
		Label:     c.Label,
		Duration:  int64(r.interval.Seconds()),
		Frames:    c.Frames,
		Source:    r.source,
	}
	if err := r.store.Create(record); err != nil {
		r.logger.Error("failed to record activity", zap.String("cycle", c.ID), zap.Error(err))
	}

	for _, cbErr := range c.CallbackErrors {
		r.recordError(c.StartedAt, KindCallback, cbErr)
	}
}

func (r *Recorder) recordError(at time.Time, kind string, err error) {
	if at.IsZero() {
		at = time.Now()
	}
	entry := &models.ErrorLog{
		Timestamp: at,
		Kind:      kind,
		ErrorMsg:  err.Error(),
	}
	if err := r.store.CreateErrorLog(entry); err != nil {
		r.logger.Error("failed to record error log", zap.String("kind", kind), zap.Error(err))
	}
}

func kindOf(err error) string {
	if errors.Is(err, activity.ErrCaptureFailed) {
		return KindCapture
	}
	return KindClassification
}
