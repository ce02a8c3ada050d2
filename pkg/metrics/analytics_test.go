package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAnalyticsMetrics(reg)

	m.ObserveComputation("net_revenue", 40*time.Millisecond)
	m.IncOutcome("net_revenue", OutcomeCompleted)
	m.IncOutcome("net_revenue", OutcomeCooldown)
	m.IncOutcome("net_revenue", OutcomeCooldown)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	mf := findMetricFamily(mfs, "gemline_analytics_refresh_total")
	require.NotNil(t, mf)
	var cooldowns float64
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "outcome", OutcomeCooldown) {
			cooldowns = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), cooldowns)

	sum, err := fetchHistogramSum(mfs, "gemline_analytics_refresh_duration_seconds", "metric", "net_revenue")
	require.NoError(t, err)
	assert.Greater(t, sum, 0.0)
}

func TestCacheMetricsByLayer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCacheMetrics(reg)

	m.IncHit(LayerMemory)
	m.IncHit(LayerPersistent)
	m.IncMiss(LayerPersistent)
	m.IncEviction(LayerMemory)
	m.IncStorageError("set")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	hits, err := fetchCounterValue(mfs, "gemline_cache_hits_total", "layer", LayerPersistent)
	require.NoError(t, err)
	assert.Equal(t, float64(1), hits)

	errs, err := fetchCounterValue(mfs, "gemline_cache_storage_errors_total", "op", "set")
	require.NoError(t, err)
	assert.Equal(t, float64(1), errs)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var a *AnalyticsMetrics
	a.IncOutcome("x", OutcomeFailed)
	a.ObserveComputation("x", time.Second)

	var c *CacheMetrics
	c.IncHit(LayerMemory)

	unregistered := NewCacheMetrics(nil)
	unregistered.IncMiss(LayerMemory)
}
