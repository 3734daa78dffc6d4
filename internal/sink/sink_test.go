package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/actionsum/sac/internal/models"
	"github.com/actionsum/sac/pkg/activity"
)

type memStore struct {
	records []*models.ActivityRecord
	errs    []*models.ErrorLog
	fail    error
}

func (m *memStore) Create(r *models.ActivityRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memStore) CreateErrorLog(e *models.ErrorLog) error {
	m.errs = append(m.errs, e)
	return nil
}

func TestRecorderStoresSuccessfulCycle(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, 10*time.Second, "x11", nil)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	r.Observe(activity.Cycle{
		ID:        "c1",
		Label:     "coding",
		Frames:    3,
		StartedAt: at,
		CallbackErrors: []error{
			&activity.CallbackError{Index: 1, Label: "coding", Err: errors.New("boom")},
		},
	})

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, "c1", rec.CycleID)
	assert.Equal(t, "coding", rec.Label)
	assert.Equal(t, int64(10), rec.Duration)
	assert.Equal(t, 3, rec.Frames)
	assert.Equal(t, "x11", rec.Source)
	assert.Equal(t, at, rec.Timestamp)

	require.Len(t, store.errs, 1)
	assert.Equal(t, KindCallback, store.errs[0].Kind)
	assert.Contains(t, store.errs[0].ErrorMsg, "boom")
}

func TestRecorderStoresFailures(t *testing.T) {
	store := &memStore{}
	r := NewRecorder(store, time.Second, "x11", nil)

	r.Observe(activity.Cycle{Err: fmt.Errorf("%w: no display", activity.ErrCaptureFailed)})
	r.Observe(activity.Cycle{Err: fmt.Errorf("%w: empty label", activity.ErrClassificationFailed)})

	assert.Empty(t, store.records)
	require.Len(t, store.errs, 2)
	assert.Equal(t, KindCapture, store.errs[0].Kind)
	assert.Equal(t, KindClassification, store.errs[1].Kind)
	assert.False(t, store.errs[0].Timestamp.IsZero())
}

func TestRecorderLogsStoreFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := &memStore{fail: errors.New("disk full")}
	r := NewRecorder(store, time.Second, "x11", zap.New(core))

	r.Observe(activity.Cycle{ID: "c1", Label: "coding"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to record activity", logs.All()[0].Message)
}

func TestRedisPayload(t *testing.T) {
	p := NewRedisPublisher(RedisOptions{Address: "127.0.0.1:1", Channel: "sac:activity", Host: "box"})
	defer p.Close()
	p.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

	data, err := p.Payload("coding")
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "coding", ev.Activity)
	assert.Equal(t, "box", ev.Host)
	assert.Equal(t, 2025, ev.Timestamp.Year())
}

func TestRedisPublishUnreachable(t *testing.T) {
	p := NewRedisPublisher(RedisOptions{Address: "127.0.0.1:1", Channel: "sac:activity"})
	defer p.Close()

	err := p.Publish("coding")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sac:activity")
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	Log(zap.New(core))("meeting")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "meeting", logs.All()[0].ContextMap()["label"])
}
