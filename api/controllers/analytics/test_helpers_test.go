package analytics

import (
	"context"
	stdjson "encoding/json"
	"time"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

type stubService struct {
	analytics.Service

	refreshResult *analytics.RefreshResult
	refreshErr    error
	refreshedAll  bool
	refreshMetric enums.MetricType
	actor         string

	period analytics.Period
	report *analytics.PeriodReport

	cached map[enums.MetricType]stdjson.RawMessage
	status *analytics.StatusReport
	runs   []analytics.RefreshRun
	limit  int
}

func (s *stubService) RefreshAnalytics(_ context.Context, metricType enums.MetricType, actor string) (*analytics.RefreshResult, error) {
	s.refreshMetric = metricType
	s.actor = actor
	return s.refreshResult, s.refreshErr
}

func (s *stubService) RefreshAllAnalytics(_ context.Context, actor string) (*analytics.RefreshResult, error) {
	s.refreshedAll = true
	s.actor = actor
	return s.refreshResult, s.refreshErr
}

func (s *stubService) CooldownStatus(context.Context) map[enums.MetricType]analytics.CooldownInfo {
	out := map[enums.MetricType]analytics.CooldownInfo{}
	for _, mt := range enums.AllMetricTypes() {
		out[mt] = analytics.CooldownInfo{CanRefresh: true}
	}
	if s.refreshResult != nil && s.refreshResult.CooldownRejected {
		out[s.refreshResult.MetricType] = analytics.CooldownInfo{CooldownRemainingMs: s.refreshResult.CooldownRemainingMs}
	}
	return out
}

func (s *stubService) PeriodReport(_ context.Context, period analytics.Period) (*analytics.PeriodReport, error) {
	s.period = period
	if s.report == nil {
		s.report = &analytics.PeriodReport{Period: period, GeneratedAt: time.Now()}
	}
	return s.report, nil
}

func (s *stubService) CachedAnalytics(context.Context) (map[enums.MetricType]stdjson.RawMessage, error) {
	return s.cached, nil
}

func (s *stubService) LiveMetrics(context.Context) (*analytics.LiveMetrics, error) {
	return &analytics.LiveMetrics{ActiveProducts: 3, TotalOrders: 9, TotalExpenses: 2}, nil
}

func (s *stubService) Status(context.Context) (*analytics.StatusReport, error) {
	return s.status, nil
}

func (s *stubService) RecentRuns(_ context.Context, limit int) ([]analytics.RefreshRun, error) {
	s.limit = limit
	return s.runs, nil
}
