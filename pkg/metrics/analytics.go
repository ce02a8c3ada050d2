package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes recorded by AnalyticsMetrics.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCooldown  = "cooldown"
)

// AnalyticsMetrics records analytics refresh activity.
type AnalyticsMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewAnalyticsMetrics registers the analytics metrics on the provided registerer.
func NewAnalyticsMetrics(reg prometheus.Registerer) *AnalyticsMetrics {
	if reg == nil {
		return &AnalyticsMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gemline_analytics_refresh_duration_seconds",
		Help:    "Duration of analytics metric computations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"metric"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gemline_analytics_refresh_total",
		Help: "Analytics refresh attempts by metric and outcome.",
	}, []string{"metric", "outcome"})
	reg.MustRegister(duration, outcomes)
	return &AnalyticsMetrics{duration: duration, outcomes: outcomes}
}

// ObserveComputation records how long a metric took to compute.
func (a *AnalyticsMetrics) ObserveComputation(metric string, duration time.Duration) {
	if a == nil || a.duration == nil {
		return
	}
	a.duration.WithLabelValues(normalizeLabel(metric)).Observe(duration.Seconds())
}

// IncOutcome counts one refresh attempt.
func (a *AnalyticsMetrics) IncOutcome(metric, outcome string) {
	if a == nil || a.outcomes == nil {
		return
	}
	a.outcomes.WithLabelValues(normalizeLabel(metric), normalizeLabel(outcome)).Inc()
}
