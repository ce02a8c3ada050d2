package analytics

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gemline-backend/pkg/db/models"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
)

// Service computes, stores and throttles the back-office analytics.
type Service interface {
	LiveMetrics(ctx context.Context) (*LiveMetrics, error)
	CalculateNetRevenue(ctx context.Context) (*NetRevenue, error)
	CalculateMonthlyTrends(ctx context.Context) ([]MonthlyTrend, error)
	CalculateExpenseBreakdown(ctx context.Context) ([]ExpenseCategoryBreakdown, error)
	CalculateTopProducts(ctx context.Context) ([]TopProduct, error)
	StoreMetric(ctx context.Context, metricType enums.MetricType, data any, computation time.Duration) (*MetricSnapshot, error)
	CachedAnalytics(ctx context.Context) (map[enums.MetricType]stdjson.RawMessage, error)
	CachedSnapshots(ctx context.Context) ([]MetricSnapshot, error)
	LastComputed(metricType enums.MetricType) (MetricSnapshot, bool)
	RefreshAnalytics(ctx context.Context, metricType enums.MetricType, actor string) (*RefreshResult, error)
	RefreshAllAnalytics(ctx context.Context, actor string) (*RefreshResult, error)
	CooldownStatus(ctx context.Context) map[enums.MetricType]CooldownInfo
	Status(ctx context.Context) (*StatusReport, error)
	PeriodReport(ctx context.Context, period Period) (*PeriodReport, error)
	RecentRuns(ctx context.Context, limit int) ([]RefreshRun, error)
}

// ServiceParams wires the analytics service.
type ServiceParams struct {
	Store     store
	Logger    *logger.Logger
	Cooldowns CooldownStore
	Clock     clockwork.Clock
	Metrics   *metrics.AnalyticsMetrics
	// StaleAfter marks stored analytics stale in Status; defaults to one hour.
	StaleAfter time.Duration
}

type service struct {
	store       store
	logg        *logger.Logger
	cooldowns   CooldownStore
	clock       clockwork.Clock
	metrics     *metrics.AnalyticsMetrics
	staleAfter  time.Duration
	calculators map[enums.MetricType]calculator

	// refreshMu is held from the cooldown check until the cooldown is marked.
	refreshMu sync.Mutex

	mu     sync.RWMutex
	mirror map[enums.MetricType]MetricSnapshot
}

// NewService builds the analytics service. Without a cooldown store the
// windows are kept in process memory.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("analytics store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	cooldowns := params.Cooldowns
	if cooldowns == nil {
		cooldowns = NewMemoryCooldownStore(clock, CooldownPeriod)
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	svc := &service{
		store:      params.Store,
		logg:       params.Logger,
		cooldowns:  cooldowns,
		clock:      clock,
		metrics:    params.Metrics,
		staleAfter: staleAfter,
		mirror:     make(map[enums.MetricType]MetricSnapshot),
	}
	svc.calculators = svc.calculatorTable()
	if err := checkCalculators(svc.calculators); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *service) LiveMetrics(ctx context.Context) (*LiveMetrics, error) {
	products, err := s.store.CountActiveProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active products")
	}
	orders, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	expenses, err := s.store.CountExpenses(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count expenses")
	}
	return &LiveMetrics{
		ActiveProducts: products,
		TotalOrders:    orders,
		TotalExpenses:  expenses,
		GeneratedAt:    s.clock.Now().UTC(),
	}, nil
}

func (s *service) StoreMetric(ctx context.Context, metricType enums.MetricType, data any, computation time.Duration) (*MetricSnapshot, error) {
	if !metricType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown metric type %q", metricType))
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", metricType, err)
	}
	row := &models.AnalyticsMetric{
		MetricType:        metricType,
		CalculatedData:    raw,
		ComputationTimeMs: computation.Milliseconds(),
		UpdatedAt:         s.clock.Now().UTC(),
	}
	if err := s.store.UpsertMetric(ctx, row); err != nil {
		return nil, fmt.Errorf("store %s: %w", metricType, err)
	}
	return &MetricSnapshot{
		MetricType:        metricType,
		CalculatedData:    stdjson.RawMessage(raw),
		ComputationTimeMs: row.ComputationTimeMs,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func (s *service) CachedSnapshots(ctx context.Context) ([]MetricSnapshot, error) {
	rows, err := s.store.ListMetrics(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list analytics metrics")
	}
	snapshots := make([]MetricSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, MetricSnapshot{
			MetricType:        row.MetricType,
			CalculatedData:    stdjson.RawMessage(row.CalculatedData),
			ComputationTimeMs: row.ComputationTimeMs,
			UpdatedAt:         row.UpdatedAt,
		})
	}
	return snapshots, nil
}

func (s *service) CachedAnalytics(ctx context.Context) (map[enums.MetricType]stdjson.RawMessage, error) {
	snapshots, err := s.CachedSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.MetricType]stdjson.RawMessage, len(snapshots))
	for _, snap := range snapshots {
		out[snap.MetricType] = snap.CalculatedData
	}
	return out, nil
}

// LastComputed returns the in-memory copy of the latest successful
// computation made by this process.
func (s *service) LastComputed(metricType enums.MetricType) (MetricSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.mirror[metricType]
	return snap, ok
}

func (s *service) remember(snap *MetricSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror[snap.MetricType] = *snap
}

func (s *service) CooldownStatus(ctx context.Context) map[enums.MetricType]CooldownInfo {
	status := make(map[enums.MetricType]CooldownInfo, len(s.calculators))
	for _, metricType := range enums.AllMetricTypes() {
		remaining, err := s.cooldowns.Remaining(ctx, metricType)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"metric_type": string(metricType), "error": err.Error()}), "analytics.cooldown_unreadable")
			remaining = 0
		}
		status[metricType] = CooldownInfo{
			CanRefresh:          remaining <= 0,
			CooldownRemainingMs: remaining.Milliseconds(),
		}
	}
	return status
}

func (s *service) Status(ctx context.Context) (*StatusReport, error) {
	snapshots, err := s.CachedSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	cooldowns := s.CooldownStatus(ctx)

	report := &StatusReport{CooldownStatus: cooldowns, CanRefresh: true, IsStale: true}
	if len(snapshots) > 0 {
		last := snapshots[0].UpdatedAt
		report.LastRefreshed = &last
		report.IsStale = s.clock.Since(last) > s.staleAfter
	}
	for _, info := range cooldowns {
		if !info.CanRefresh {
			report.CanRefresh = false
		}
	}
	return report, nil
}

func (s *service) RecentRuns(ctx context.Context, limit int) ([]RefreshRun, error) {
	if limit <= 0 || limit > maxRecentRuns {
		limit = defaultRecentRuns
	}
	rows, err := s.store.RecentRuns(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refresh runs")
	}
	runs := make([]RefreshRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, RefreshRun{
			ID:                row.ID,
			MetricType:        row.MetricType,
			Status:            row.Status,
			TriggeredBy:       row.TriggeredBy,
			LastRefreshAt:     row.LastRefreshAt,
			RefreshDurationMs: row.RefreshDurationMs,
			ErrorMessage:      row.ErrorMessage,
			CreatedAt:         row.CreatedAt,
		})
	}
	return runs, nil
}

func normalizeActor(actor string) string {
	if actor == "" {
		return defaultActor
	}
	return actor
}

func (s *service) cooldownRejection(metricType enums.MetricType, remaining time.Duration) *RefreshResult {
	s.metrics.IncOutcome(string(metricType), metrics.OutcomeCooldown)
	return &RefreshResult{
		Success:             false,
		MetricType:          metricType,
		CooldownRejected:    true,
		CooldownRemainingMs: remaining.Milliseconds(),
		Error:               fmt.Sprintf(cooldownMessageFormat, metricType, int64((remaining+time.Second-1)/time.Second)),
	}
}

// RefreshAnalytics recomputes one metric unless it is cooling down. Failures
// are returned as a result with Success=false; the error return is reserved
// for callers that pass an invalid context. Refreshes in one process are
// serialized, and the work is not cancelled when the caller goes away.
func (s *service) RefreshAnalytics(ctx context.Context, metricType enums.MetricType, actor string) (*RefreshResult, error) {
	actor = normalizeActor(actor)
	ctx = s.logg.WithFields(ctx, map[string]any{"metric_type": string(metricType), "actor": actor})

	if _, ok := s.calculators[metricType]; !ok {
		err := fmt.Errorf("unknown metric type %q", metricType)
		s.logg.Error(ctx, "analytics.refresh.unknown_metric", err)
		s.metrics.IncOutcome(string(metricType), metrics.OutcomeFailed)
		return &RefreshResult{Success: false, MetricType: metricType, Error: err.Error()}, nil
	}

	ctx = context.WithoutCancel(ctx)
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	remaining, err := s.cooldowns.Remaining(ctx, metricType)
	if err != nil {
		s.logg.Error(ctx, "analytics.refresh.cooldown_check_failed", err)
		return &RefreshResult{Success: false, MetricType: metricType, Error: err.Error()}, nil
	}
	if remaining > 0 {
		s.logg.Info(ctx, "analytics.refresh.cooldown")
		return s.cooldownRejection(metricType, remaining), nil
	}
	return s.refreshOne(ctx, metricType, actor), nil
}

func (s *service) refreshOne(ctx context.Context, metricType enums.MetricType, actor string) *RefreshResult {
	start := s.clock.Now().UTC()
	run := &models.AnalyticsRefreshRun{
		MetricType:    &metricType,
		Status:        enums.RefreshStatusProcessing,
		TriggeredBy:   actor,
		LastRefreshAt: start,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		s.logg.Error(ctx, "analytics.refresh.run_create_failed", err)
		s.metrics.IncOutcome(string(metricType), metrics.OutcomeFailed)
		return &RefreshResult{Success: false, MetricType: metricType, Error: err.Error()}
	}
	ctx = s.logg.WithField(ctx, "run_id", run.ID.String())

	snap, err := s.computeAndStore(ctx, metricType)
	if err != nil {
		return s.failRun(ctx, run, start, metricType, err)
	}

	s.remember(snap)
	if err := s.cooldowns.Mark(ctx, metricType); err != nil {
		s.logg.Error(ctx, "analytics.refresh.cooldown_mark_failed", err)
	}
	duration := s.clock.Since(start)
	s.resolveRun(ctx, run.ID, enums.RefreshStatusCompleted, duration, nil)
	s.metrics.IncOutcome(string(metricType), metrics.OutcomeCompleted)

	s.logg.Info(s.logg.WithField(ctx, "duration_ms", duration.Milliseconds()), "analytics.refresh.completed")
	return &RefreshResult{
		Success:     true,
		MetricType:  metricType,
		RunID:       &run.ID,
		DurationMs:  duration.Milliseconds(),
		RefreshedAt: &snap.UpdatedAt,
		Data:        map[enums.MetricType]stdjson.RawMessage{metricType: snap.CalculatedData},
	}
}

// compute runs the calculator for metricType and reports how long it took.
func (s *service) compute(ctx context.Context, metricType enums.MetricType) (any, time.Duration, error) {
	calc, ok := s.calculators[metricType]
	if !ok {
		return nil, 0, fmt.Errorf("unknown metric type %q", metricType)
	}
	start := s.clock.Now()
	data, err := calc(ctx)
	elapsed := s.clock.Since(start)
	s.metrics.ObserveComputation(string(metricType), elapsed)
	if err != nil {
		return nil, elapsed, fmt.Errorf("calculate %s: %w", metricType, err)
	}
	return data, elapsed, nil
}

func (s *service) computeAndStore(ctx context.Context, metricType enums.MetricType) (*MetricSnapshot, error) {
	data, elapsed, err := s.compute(ctx, metricType)
	if err != nil {
		return nil, err
	}
	return s.StoreMetric(ctx, metricType, data, elapsed)
}

// failRun resolves the same run record to failed and builds the failure result.
func (s *service) failRun(ctx context.Context, run *models.AnalyticsRefreshRun, start time.Time, metricType enums.MetricType, cause error) *RefreshResult {
	s.logg.Error(ctx, "analytics.refresh.failed", cause)
	msg := cause.Error()
	s.resolveRun(ctx, run.ID, enums.RefreshStatusFailed, s.clock.Since(start), &msg)
	s.metrics.IncOutcome(outcomeLabel(metricType), metrics.OutcomeFailed)
	return &RefreshResult{
		Success:    false,
		MetricType: metricType,
		RunID:      &run.ID,
		Error:      msg,
	}
}

func (s *service) resolveRun(ctx context.Context, id uuid.UUID, status enums.RefreshStatus, duration time.Duration, errMsg *string) {
	updated, err := s.store.ResolveRun(ctx, id, status, duration.Milliseconds(), errMsg)
	if err != nil {
		s.logg.Error(ctx, "analytics.refresh.run_resolve_failed", err)
		return
	}
	if !updated {
		s.logg.Warn(s.logg.WithField(ctx, "status", string(status)), "analytics.refresh.run_already_terminal")
	}
}

func outcomeLabel(metricType enums.MetricType) string {
	if metricType == "" {
		return allMetricsLabel
	}
	return string(metricType)
}

const allMetricsLabel = "all"

// RefreshAllAnalytics recomputes the four metrics together. If any one of
// them is cooling down the whole batch is refused and that metric reported.
// Writes are not atomic as a group: a crash mid-way can leave some metrics
// refreshed and others not.
func (s *service) RefreshAllAnalytics(ctx context.Context, actor string) (*RefreshResult, error) {
	actor = normalizeActor(actor)
	ctx = s.logg.WithFields(ctx, map[string]any{"metric_type": allMetricsLabel, "actor": actor})
	ctx = context.WithoutCancel(ctx)
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	for _, metricType := range enums.AllMetricTypes() {
		remaining, err := s.cooldowns.Remaining(ctx, metricType)
		if err != nil {
			s.logg.Error(ctx, "analytics.refresh.cooldown_check_failed", err)
			return &RefreshResult{Success: false, Error: err.Error()}, nil
		}
		if remaining > 0 {
			s.logg.Info(s.logg.WithField(ctx, "cooldown_metric", string(metricType)), "analytics.refresh.cooldown")
			return s.cooldownRejection(metricType, remaining), nil
		}
	}

	return s.refreshAll(ctx, actor), nil
}

func (s *service) refreshAll(ctx context.Context, actor string) *RefreshResult {
	start := s.clock.Now().UTC()
	run := &models.AnalyticsRefreshRun{
		Status:        enums.RefreshStatusProcessing,
		TriggeredBy:   actor,
		LastRefreshAt: start,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		s.logg.Error(ctx, "analytics.refresh.run_create_failed", err)
		s.metrics.IncOutcome(outcomeLabel(""), metrics.OutcomeFailed)
		return &RefreshResult{Success: false, Error: err.Error()}
	}
	ctx = s.logg.WithField(ctx, "run_id", run.ID.String())

	types := enums.AllMetricTypes()
	payloads := make([]any, len(types))
	elapsed := make([]time.Duration, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, metricType := range types {
		i, metricType := i, metricType
		g.Go(func() error {
			data, took, err := s.compute(gctx, metricType)
			if err != nil {
				return err
			}
			payloads[i] = data
			elapsed[i] = took
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.failRun(ctx, run, start, "", err)
	}

	data := make(map[enums.MetricType]stdjson.RawMessage, len(types))
	var refreshedAt time.Time
	for i, metricType := range types {
		snap, err := s.StoreMetric(ctx, metricType, payloads[i], elapsed[i])
		if err != nil {
			return s.failRun(ctx, run, start, "", err)
		}
		s.remember(snap)
		if err := s.cooldowns.Mark(ctx, metricType); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "cooldown_metric", string(metricType)), "analytics.refresh.cooldown_mark_failed", err)
		}
		s.metrics.IncOutcome(string(metricType), metrics.OutcomeCompleted)
		data[metricType] = snap.CalculatedData
		refreshedAt = snap.UpdatedAt
	}

	snapshot := &models.AnalyticsSnapshot{
		SnapshotDate:     time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		NetRevenue:       []byte(data[enums.MetricTypeNetRevenue]),
		MonthlyTrends:    []byte(data[enums.MetricTypeMonthlyTrends]),
		ExpenseBreakdown: []byte(data[enums.MetricTypeExpenseBreakdown]),
		TopProducts:      []byte(data[enums.MetricTypeTopProducts]),
		TriggeredBy:      actor,
	}
	if err := s.store.CreateSnapshot(ctx, snapshot); err != nil {
		return s.failRun(ctx, run, start, "", fmt.Errorf("write analytics snapshot: %w", err))
	}

	duration := s.clock.Since(start)
	s.resolveRun(ctx, run.ID, enums.RefreshStatusCompleted, duration, nil)
	s.logg.Info(s.logg.WithField(ctx, "duration_ms", duration.Milliseconds()), "analytics.refresh_all.completed")

	return &RefreshResult{
		Success:     true,
		RunID:       &run.ID,
		DurationMs:  duration.Milliseconds(),
		RefreshedAt: &refreshedAt,
		Data:        data,
	}
}
