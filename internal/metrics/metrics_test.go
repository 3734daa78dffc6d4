package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/sac/pkg/activity"
)

func TestResult(t *testing.T) {
	assert.Equal(t, ResultOK, Result(activity.Cycle{Label: "coding"}))
	assert.Equal(t, ResultCaptureFailed,
		Result(activity.Cycle{Err: fmt.Errorf("%w: no display", activity.ErrCaptureFailed)}))
	assert.Equal(t, ResultClassificationFailed,
		Result(activity.Cycle{Err: fmt.Errorf("%w: empty", activity.ErrClassificationFailed)}))
}

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg), "second Register is a no-op")

	okBefore := testutil.ToFloat64(cycles.WithLabelValues(ResultOK))
	failBefore := testutil.ToFloat64(cycles.WithLabelValues(ResultCaptureFailed))
	cbBefore := testutil.ToFloat64(callbackFailures)

	ObserveCycle(activity.Cycle{
		Label:          "coding",
		StartedAt:      time.Unix(1700000000, 0),
		Duration:       20 * time.Millisecond,
		CallbackErrors: []error{errors.New("a"), errors.New("b")},
	})
	ObserveCycle(activity.Cycle{Err: fmt.Errorf("%w: x", activity.ErrCaptureFailed)})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(cycles.WithLabelValues(ResultOK)))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(cycles.WithLabelValues(ResultCaptureFailed)))
	assert.Equal(t, cbBefore+2, testutil.ToFloat64(callbackFailures))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(lastSuccess))

	SetRunning(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(running))
	SetRunning(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(running))
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
}
