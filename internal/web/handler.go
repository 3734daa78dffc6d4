package web

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/actionsum/sac/internal/metrics"
	"github.com/actionsum/sac/internal/models"
	"github.com/actionsum/sac/internal/reporter"
	"github.com/actionsum/sac/pkg/activity"
	"github.com/actionsum/sac/pkg/utils"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// ActivityReader is the subset of the repository the API reads from.
type ActivityReader interface {
	GetSince(since time.Time, limit int) ([]*models.ActivityRecord, error)
	GetLatest() (*models.ActivityRecord, error)
}

// ReportGenerator builds period reports.
type ReportGenerator interface {
	GenerateReport(periodType string) (*models.Report, error)
	Period(periodType string) (*models.ReportPeriod, error)
}

// StatusProvider exposes the live monitor. It is nil when the server runs
// without a monitor in the same process.
type StatusProvider interface {
	State() activity.State
	Stats() activity.Stats
}

type Handler struct {
	repo     ActivityReader
	reporter ReportGenerator
	monitor  StatusProvider
	interval time.Duration
}

func NewHandler(repo ActivityReader, reporter ReportGenerator, monitor StatusProvider, interval time.Duration) *Handler {
	return &Handler{
		repo:     repo,
		reporter: reporter,
		monitor:  monitor,
		interval: interval,
	}
}

// Router returns the gin engine serving the dashboard and the JSON API.
func (h *Handler) Router() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), cors())

	g.GET("/", h.handleIndex)
	g.GET("/health", h.handleHealth)
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := g.Group("/api")
	api.GET("/status", h.handleStatus)
	api.GET("/activities", h.handleActivities)
	api.GET("/activities/latest", h.handleLatest)
	api.GET("/report", h.handleReport)
	api.GET("/summary", h.handleSummary)

	return g
}

type errorResp struct {
	Error string `json:"error"`
}

func (h *Handler) handleActivities(c *gin.Context) {
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = min(l, maxLimit)
	}

	since := time.Now().Add(-24 * time.Hour)
	if periodType := c.Query("period"); periodType != "" {
		period, err := h.reporter.Period(periodType)
		if err != nil {
			if errors.Is(err, reporter.ErrInvalidPeriod) {
				c.JSON(http.StatusBadRequest, errorResp{Error: err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, errorResp{Error: fmt.Sprintf("failed to resolve period: %v", err)})
			return
		}
		since = period.Start
	}

	records, err := h.repo.GetSince(since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: fmt.Sprintf("failed to fetch activities: %v", err)})
		return
	}
	if records == nil {
		records = []*models.ActivityRecord{}
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) handleLatest(c *gin.Context) {
	record, err := h.repo.GetLatest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: fmt.Sprintf("failed to fetch latest activity: %v", err)})
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, errorResp{Error: "no activities recorded"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) handleReport(c *gin.Context) {
	report, err := h.reporter.GenerateReport(c.DefaultQuery("period", "day"))
	if err != nil {
		if errors.Is(err, reporter.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, errorResp{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResp{Error: fmt.Sprintf("failed to generate report: %v", err)})
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleSummary serves the dashboard fragments; non-htmx clients get the report JSON.
func (h *Handler) handleSummary(c *gin.Context) {
	if c.GetHeader("HX-Request") != "true" {
		h.handleReport(c)
		return
	}

	report, err := h.reporter.GenerateReport(c.DefaultQuery("period", "day"))
	if err != nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte(`<div class="loading">`+html.EscapeString(err.Error())+`</div>`))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(summaryHTML(report)))
}

func summaryHTML(report *models.Report) string {
	if len(report.Labels) == 0 {
		return `<div class="loading">No data available</div>`
	}

	var b strings.Builder
	b.WriteString(`<div class="listing">`)
	for _, s := range report.Labels {
		fmt.Fprintf(&b, `<div class="item" style="--bar-width: %.1f%%"><span class="label">%s</span>`+
			`<span><span class="time">%s</span> <span class="pct">%.1f%%</span></span></div>`,
			s.Percentage, html.EscapeString(s.Label), utils.FormatRoundedUnit(s.TotalSeconds), s.Percentage)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(report.TotalSeconds))

	return b.String()
}

func (h *Handler) handleStatus(c *gin.Context) {
	status := gin.H{
		"state":    activity.StateStopped.String(),
		"interval": h.interval.String(),
	}

	if h.monitor != nil {
		status["state"] = h.monitor.State().String()
		status["stats"] = h.monitor.Stats()
	}

	if latest, err := h.repo.GetLatest(); err == nil && latest != nil {
		status["latest_activity"] = gin.H{
			"label":     latest.Label,
			"timestamp": latest.Timestamp,
			"source":    latest.Source,
		}
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Next()
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>sac</title>
    <script src="https://unpkg.com/htmx.org@1.9.10"></script>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #f5f5f5; color: #333; padding: 20px; }
        .dashboard { display: flex; gap: 20px; flex-wrap: wrap; }
        .box { flex: 1; min-width: 300px; background: white; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); padding: 24px; }
        .box h2 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
        .item { display: flex; justify-content: space-between; padding: 10px 8px; border-bottom: 1px solid #eee; position: relative; }
        .item::before { content: ''; position: absolute; left: 0; top: 0; height: 100%; width: var(--bar-width, 0%); background: #3498db; opacity: 0.15; }
        .time, .loading { color: #7f8c8d; }
        .pct { color: #3498db; font-weight: 600; }
        .total { margin-top: 16px; font-weight: 600; color: #2c3e50; }
    </style>
</head>
<body>
    <h1>Activity</h1>
    <div class="dashboard">
        <div class="box">
            <h2>Today</h2>
            <div hx-get="/api/summary?period=today" hx-trigger="load, every 30s"><div class="loading">Loading...</div></div>
        </div>
        <div class="box">
            <h2>This Week</h2>
            <div hx-get="/api/summary?period=week" hx-trigger="load, every 30s"><div class="loading">Loading...</div></div>
        </div>
        <div class="box">
            <h2>This Month</h2>
            <div hx-get="/api/summary?period=month" hx-trigger="load, every 30s"><div class="loading">Loading...</div></div>
        </div>
    </div>
</body>
</html>`
