package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/actionsum/sac/internal/models"
	"github.com/actionsum/sac/pkg/utils"
)

// ErrInvalidPeriod is returned for a period name other than day, today, week
// or month.
var ErrInvalidPeriod = errors.New("invalid period type")

// Store is the subset of the repository the reporter reads from.
type Store interface {
	GetLabelSummaryBetween(start, end time.Time) ([]models.LabelSummary, error)
	CountErrorsBetween(start, end time.Time) (int64, error)
}

// Reporter handles report generation
type Reporter struct {
	store Store
	loc   *time.Location
	now   func() time.Time
}

// New creates a new reporter. timeZone is an IANA name, "Local" or empty.
func New(store Store, timeZone string) (*Reporter, error) {
	loc := time.Local
	if timeZone != "" && timeZone != "Local" {
		var err error
		loc, err = time.LoadLocation(timeZone)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid report time zone %q", timeZone)
		}
	}

	return &Reporter{
		store: store,
		loc:   loc,
		now:   time.Now,
	}, nil
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := r.Period(periodType)
	if err != nil {
		return nil, err
	}

	// SQL does the SUM, the rest is derived here
	summaries, err := r.store.GetLabelSummaryBetween(period.Start, period.End)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get label summary")
	}

	failed, err := r.store.CountErrorsBetween(period.Start, period.End)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count failed cycles")
	}

	var totalSeconds int64
	for i := range summaries {
		summaries[i].TotalMinutes = float64(summaries[i].TotalSeconds) / 60.0
		summaries[i].TotalHours = float64(summaries[i].TotalSeconds) / 3600.0
		totalSeconds += summaries[i].TotalSeconds
	}

	if totalSeconds > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].TotalSeconds) / float64(totalSeconds)) * 100.0
		}
	}

	report := &models.Report{
		Period:       *period,
		Labels:       summaries,
		TotalSeconds: totalSeconds,
		TotalMinutes: float64(totalSeconds) / 60.0,
		TotalHours:   float64(totalSeconds) / 3600.0,
		FailedCycles: failed,
		GeneratedAt:  r.now().In(r.loc),
	}

	return report, nil
}

// Period calculates the time range for a report in the reporter's time zone
func (r *Reporter) Period(periodType string) (*models.ReportPeriod, error) {
	now := r.now().In(r.loc)
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, r.loc)
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("%w: %s (valid: day, week, month)", ErrInvalidPeriod, periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Activity Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Total Time: %.2fh (%s)\n", report.TotalHours, utils.FormatRoundedUnit(report.TotalSeconds))
	if report.FailedCycles > 0 {
		fmt.Fprintf(&b, "Failed cycles: %d\n", report.FailedCycles)
	}
	b.WriteString("\n")

	if len(report.Labels) == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %8s %10s %9s\n", "Activity", "Hours", "Time", "Cycles", "Percent")
	b.WriteString(strings.Repeat("-", 72) + "\n")

	for _, s := range report.Labels {
		fmt.Fprintf(&b, "%-30s %10.2f %8s %10d %8.1f%%\n",
			truncate(s.Label, 30),
			s.TotalHours,
			utils.FormatRoundedUnit(s.TotalSeconds),
			s.CycleCount,
			s.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

// truncate truncates a string to the specified number of runes
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
