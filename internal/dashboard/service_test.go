package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/db/models"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

var testNow = time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)

type stubAnalytics struct {
	calls     int
	err       error
	snapshots []analytics.MetricSnapshot
}

func (s *stubAnalytics) LiveMetrics(context.Context) (*analytics.LiveMetrics, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &analytics.LiveMetrics{ActiveProducts: 12, TotalOrders: int64(s.calls), TotalExpenses: 4, GeneratedAt: testNow}, nil
}

func (s *stubAnalytics) CachedSnapshots(context.Context) ([]analytics.MetricSnapshot, error) {
	return s.snapshots, nil
}

type fixture struct {
	svc   Service
	db    *gorm.DB
	live  *stubAnalytics
	clock *clockwork.FakeClock
	cache *cache.Cache
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func newWidgetService(t *testing.T, conn *gorm.DB, reader analyticsReader, clock clockwork.Clock) (Service, *cache.Cache) {
	t.Helper()
	c, err := cache.New(cache.Options{Clock: clock, Logger: logger.Nop()})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Analytics: reader,
		Cache:     c,
		TTL:       time.Minute,
		Clock:     clock,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return svc, c
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := openTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	live := &stubAnalytics{}
	svc, c := newWidgetService(t, conn, live, clock)
	return &fixture{svc: svc, db: conn, live: live, clock: clock, cache: c}
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestWidgetsWithoutStoredMetrics(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		require.NoError(t, f.db.Create(&models.Order{
			OrderNumber:  fmt.Sprintf("GL-%d", i),
			CustomerName: "Lucia",
			TotalAmount:  decimal.RequireFromString("19.99"),
			Status:       enums.OrderStatusPending,
			CreatedAt:    testNow.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	widgets, err := f.svc.Widgets(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 12, widgets.Live.ActiveProducts)
	assert.Nil(t, widgets.NetRevenue)
	assert.Nil(t, widgets.SnapshotDate)
	assert.Empty(t, widgets.TopProducts)
	require.Len(t, widgets.RecentOrders, recentOrdersLimit)
	assert.Equal(t, "GL-6", widgets.RecentOrders[0].OrderNumber)
	assert.Equal(t, 19.99, widgets.RecentOrders[0].TotalAmount)
	assert.True(t, widgets.GeneratedAt.Equal(testNow))
}

func TestWidgetsReadStoredMetrics(t *testing.T) {
	f := newFixture(t)

	var top []analytics.TopProduct
	for i := 0; i < 8; i++ {
		top = append(top, analytics.TopProduct{ProductName: fmt.Sprintf("Piece %d", i), TotalSold: 1, Revenue: float64(100 - i), AveragePrice: float64(100 - i)})
	}
	topRaw, err := json.Marshal(top)
	require.NoError(t, err)
	netRaw, err := json.Marshal(analytics.NetRevenue{TotalRevenue: 500, TotalExpenses: 100, NetRevenue: 400, ProfitMarginPercentage: 80})
	require.NoError(t, err)

	newest := testNow.Add(-time.Minute)
	f.live.snapshots = []analytics.MetricSnapshot{
		{MetricType: enums.MetricTypeMonthlyTrends, CalculatedData: []byte(`[]`), UpdatedAt: testNow},
		{MetricType: enums.MetricTypeNetRevenue, CalculatedData: netRaw, UpdatedAt: newest},
		{MetricType: enums.MetricTypeTopProducts, CalculatedData: topRaw, UpdatedAt: testNow.Add(-time.Hour)},
	}

	widgets, err := f.svc.Widgets(context.Background())
	require.NoError(t, err)
	require.NotNil(t, widgets.NetRevenue)
	assert.Equal(t, 400.0, widgets.NetRevenue.NetRevenue)
	require.Len(t, widgets.TopProducts, topProductsLimit)
	assert.Equal(t, "Piece 0", widgets.TopProducts[0].ProductName)
	require.NotNil(t, widgets.SnapshotDate)
	assert.True(t, widgets.SnapshotDate.Equal(newest))
}

func TestRefreshWidgetsFollowsSingleMetricRefresh(t *testing.T) {
	conn := openTestDB(t)
	clock := clockwork.NewFakeClockAt(testNow)
	analyticsSvc, err := analytics.NewService(analytics.ServiceParams{
		Store:  analytics.NewRepository(conn),
		Logger: logger.Nop(),
		Clock:  clock,
	})
	require.NoError(t, err)
	svc, _ := newWidgetService(t, conn, analyticsSvc, clock)
	ctx := context.Background()

	addOrder := func(number, amount string) {
		require.NoError(t, conn.Create(&models.Order{
			OrderNumber:  number,
			CustomerName: "Lucia",
			TotalAmount:  decimal.RequireFromString(amount),
			Status:       enums.OrderStatusDelivered,
			CreatedAt:    testNow.Add(-time.Hour),
		}).Error)
	}

	addOrder("GL-1", "100.00")
	all, err := analyticsSvc.RefreshAllAnalytics(ctx, "")
	require.NoError(t, err)
	require.True(t, all.Success, all.Error)

	clock.Advance(6 * time.Minute)
	addOrder("GL-2", "900.00")
	single, err := analyticsSvc.RefreshAnalytics(ctx, enums.MetricTypeNetRevenue, "")
	require.NoError(t, err)
	require.True(t, single.Success, single.Error)

	widgets, err := svc.RefreshWidgets(ctx)
	require.NoError(t, err)
	require.NotNil(t, widgets.NetRevenue)
	assert.Equal(t, 1000.0, widgets.NetRevenue.TotalRevenue)
	require.NotNil(t, widgets.SnapshotDate)
	assert.True(t, widgets.SnapshotDate.Equal(*single.RefreshedAt))
}

func TestWidgetsServedFromCacheUntilExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Widgets(ctx)
	require.NoError(t, err)
	second, err := f.svc.Widgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.live.calls)
	assert.Equal(t, first.Live.TotalOrders, second.Live.TotalOrders)

	f.clock.Advance(time.Minute + time.Millisecond)
	third, err := f.svc.Widgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.live.calls)
	assert.EqualValues(t, 2, third.Live.TotalOrders)
}

func TestRefreshWidgetsOverwritesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Widgets(ctx)
	require.NoError(t, err)
	refreshed, err := f.svc.RefreshWidgets(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, refreshed.Live.TotalOrders)

	cached, err := f.svc.Widgets(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cached.Live.TotalOrders)
	assert.Equal(t, 2, f.live.calls)
}

func TestWidgetsInvalidatedByOrderChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Widgets(ctx)
	require.NoError(t, err)
	f.cache.InvalidateOnDataChange(ctx, cache.ChangeOrder)

	_, err = f.svc.Widgets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.live.calls)
}

func TestWidgetsPropagatesLiveMetricsError(t *testing.T) {
	f := newFixture(t)
	f.live.err = errors.New("db down")

	_, err := f.svc.Widgets(context.Background())
	require.Error(t, err)
	assert.False(t, f.cache.Status(context.Background(), cache.KeyDashboardWidgets).Exists)
}
