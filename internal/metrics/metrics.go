package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/actionsum/sac/pkg/activity"
)

// Cycle results used as the "result" label.
const (
	ResultOK                   = "ok"
	ResultCaptureFailed        = "capture_failed"
	ResultClassificationFailed = "classification_failed"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Number of capture/classify cycles by result.",
		}, []string{"result"},
	)
	callbackFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sac",
			Subsystem: "monitor",
			Name:      "callback_failures_total",
			Help:      "Number of callback invocations that panicked or returned an error.",
		},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sac",
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of a cycle including dispatch.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	running = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sac",
			Subsystem: "monitor",
			Name:      "running",
			Help:      "1 while the monitor loop is running.",
		},
	)
	lastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sac",
			Subsystem: "monitor",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last cycle that dispatched a label.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{cycles, callbackFailures, cycleDuration, running, lastSuccess}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveCycle records one cycle. It no-ops if Register hasn't been called.
func ObserveCycle(c activity.Cycle) {
	if !regOK.Load() {
		return
	}
	cycles.WithLabelValues(Result(c)).Inc()
	cycleDuration.Observe(c.Duration.Seconds())
	callbackFailures.Add(float64(len(c.CallbackErrors)))
	if c.Succeeded() {
		lastSuccess.Set(float64(c.StartedAt.Unix()))
	}
}

// Result maps a cycle to its "result" label value.
func Result(c activity.Cycle) string {
	switch {
	case c.Err == nil:
		return ResultOK
	case errors.Is(c.Err, activity.ErrCaptureFailed):
		return ResultCaptureFailed
	default:
		return ResultClassificationFailed
	}
}

func SetRunning(on bool) {
	if !regOK.Load() {
		return
	}
	if on {
		running.Set(1)
	} else {
		running.Set(0)
	}
}
