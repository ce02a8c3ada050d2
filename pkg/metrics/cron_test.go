package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	m.ObserveRun("analytics_refresh", 250*time.Millisecond, finished, nil)
	m.ObserveRun("analytics_refresh", time.Second, finished.Add(time.Hour), errors.New("db down"))
	m.IncSkipped()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	runs := findMetricFamily(mfs, "gemline_cron_job_runs_total")
	require.NotNil(t, runs)
	byOutcome := map[string]float64{}
	for _, metric := range runs.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "outcome" {
				byOutcome[label.GetValue()] = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{OutcomeSuccess: 1, OutcomeFailure: 1}, byOutcome)

	sum, err := fetchHistogramSum(mfs, "gemline_cron_job_duration_seconds", "job", "analytics_refresh")
	require.NoError(t, err)
	assert.InDelta(t, 1.25, sum, 1e-9)

	last := findMetricFamily(mfs, "gemline_cron_job_last_success_timestamp_seconds")
	require.NotNil(t, last)
	assert.Equal(t, float64(finished.Unix()), last.GetMetric()[0].GetGauge().GetValue())

	skipped := findMetricFamily(mfs, "gemline_cron_cycles_skipped_total")
	require.NotNil(t, skipped)
	assert.Equal(t, float64(1), skipped.GetMetric()[0].GetCounter().GetValue())
}

func TestNilCronJobMetricsIsSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("job", time.Second, time.Now(), nil)
	m.IncSkipped()
	NewCronJobMetrics(nil).ObserveRun("job", time.Second, time.Now(), nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	if found := metricsWithLabel(mfs, name, label, value); len(found) > 0 {
		return found[0].GetCounter().GetValue(), nil
	}
	return 0, fmt.Errorf("counter %q with %s=%s not found", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	if found := metricsWithLabel(mfs, name, label, value); len(found) > 0 {
		return found[0].GetHistogram().GetSampleSum(), nil
	}
	return 0, fmt.Errorf("histogram %q with %s=%s not found", name, label, value)
}

func metricsWithLabel(mfs []*dto.MetricFamily, name, label, value string) []*dto.Metric {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return nil
	}
	var out []*dto.Metric
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			out = append(out, metric)
		}
	}
	return out
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
