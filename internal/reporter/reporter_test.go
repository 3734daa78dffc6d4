package reporter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/sac/internal/models"
)

type fakeStore struct {
	summaries []models.LabelSummary
	failed    int64
	err       error

	gotStart, gotEnd time.Time
}

func (f *fakeStore) GetLabelSummaryBetween(start, end time.Time) ([]models.LabelSummary, error) {
	f.gotStart, f.gotEnd = start, end
	return f.summaries, f.err
}

func (f *fakeStore) CountErrorsBetween(start, end time.Time) (int64, error) {
	return f.failed, nil
}

func newTestReporter(t *testing.T, store Store, now time.Time) *Reporter {
	t.Helper()
	r, err := New(store, "UTC")
	require.NoError(t, err)
	r.now = func() time.Time { return now }
	return r
}

func TestPeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	r := newTestReporter(t, &fakeStore{}, now)

	tests := []struct {
		period     string
		start, end time.Time
	}{
		{"day", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"today", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p, err := r.Period(tt.period)
			require.NoError(t, err)
			assert.True(t, tt.start.Equal(p.Start), "start %v", p.Start)
			assert.True(t, tt.end.Equal(p.End), "end %v", p.End)
		})
	}

	_, err := r.Period("year")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = r.GenerateReport("fortnight")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriodWeekOnSunday(t *testing.T) {
	now := time.Date(2025, 3, 16, 10, 0, 0, 0, time.UTC)
	r := newTestReporter(t, &fakeStore{}, now)

	p, err := r.Period("week")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, p.Start.Weekday())
	assert.Equal(t, 10, p.Start.Day())
}

func TestGenerateReport(t *testing.T) {
	store := &fakeStore{
		summaries: []models.LabelSummary{
			{Label: "coding", TotalSeconds: 5400, CycleCount: 540},
			{Label: "email", TotalSeconds: 1800, CycleCount: 180},
		},
		failed: 3,
	}
	now := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
	r := newTestReporter(t, store, now)

	report, err := r.GenerateReport("day")
	require.NoError(t, err)

	assert.Equal(t, int64(7200), report.TotalSeconds)
	assert.InDelta(t, 2.0, report.TotalHours, 0.0001)
	assert.InDelta(t, 75.0, report.Labels[0].Percentage, 0.0001)
	assert.InDelta(t, 90.0, report.Labels[0].TotalMinutes, 0.0001)
	assert.Equal(t, int64(3), report.FailedCycles)
	assert.True(t, store.gotEnd.Sub(store.gotStart) == 24*time.Hour)
}

func TestGenerateReportStoreError(t *testing.T) {
	r := newTestReporter(t, &fakeStore{err: errors.New("disk")}, time.Now())

	_, err := r.GenerateReport("day")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk")
}

func TestFormatReportText(t *testing.T) {
	r := newTestReporter(t, &fakeStore{}, time.Now())

	empty := r.FormatReportText(&models.Report{Period: models.ReportPeriod{Type: "day"}})
	assert.Contains(t, empty, "No activity recorded")

	text := r.FormatReportText(&models.Report{
		Period:       models.ReportPeriod{Type: "week"},
		TotalSeconds: 7200,
		TotalHours:   2,
		FailedCycles: 1,
		Labels: []models.LabelSummary{
			{Label: strings.Repeat("x", 40), TotalSeconds: 7200, TotalHours: 2, CycleCount: 720, Percentage: 100},
		},
	})
	assert.Contains(t, text, "Activity Report - week")
	assert.Contains(t, text, "Failed cycles: 1")
	assert.Contains(t, text, strings.Repeat("x", 27)+"...")
	assert.Contains(t, text, "2h")
}

func TestFormatReportJSON(t *testing.T) {
	r := newTestReporter(t, &fakeStore{}, time.Now())

	out, err := r.FormatReportJSON(&models.Report{Labels: []models.LabelSummary{{Label: "coding"}}})
	require.NoError(t, err)
	assert.Contains(t, out, `"label": "coding"`)
}

func TestNewInvalidTimeZone(t *testing.T) {
	_, err := New(&fakeStore{}, "Mars/Olympus")
	assert.Error(t, err)
}
