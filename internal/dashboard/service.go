package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

const (
	recentOrdersLimit = 5
	topProductsLimit  = 5
)

type Service interface {
	// Widgets serves the cached bundle, rebuilding it when the entry is missing or stale.
	Widgets(ctx context.Context) (*Widgets, error)
	// RefreshWidgets rebuilds the bundle and overwrites the cache.
	RefreshWidgets(ctx context.Context) (*Widgets, error)
}

type ServiceParams struct {
	Repo      Repository
	Analytics analyticsReader
	Cache     *cache.Cache
	TTL       time.Duration
	Clock     clockwork.Clock
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	analytics analyticsReader
	cache     *cache.Cache
	ttl       time.Duration
	clock     clockwork.Clock
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("dashboard repository required")
	}
	if params.Analytics == nil {
		return nil, fmt.Errorf("analytics service required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("cache required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &service{
		repo:      params.Repo,
		analytics: params.Analytics,
		cache:     params.Cache,
		ttl:       ttl,
		clock:     clock,
		logg:      params.Logger,
	}, nil
}

func (s *service) Widgets(ctx context.Context) (*Widgets, error) {
	var cached Widgets
	if s.cache.Get(ctx, cache.KeyDashboardWidgets, &cached) {
		return &cached, nil
	}
	return s.RefreshWidgets(ctx)
}

func (s *service) RefreshWidgets(ctx context.Context) (*Widgets, error) {
	widgets, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cache.KeyDashboardWidgets, widgets, s.ttl, true)
	return widgets, nil
}

func (s *service) build(ctx context.Context) (*Widgets, error) {
	live, err := s.analytics.LiveMetrics(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent orders")
	}
	recent := make([]RecentOrder, 0, len(orders))
	for _, o := range orders {
		recent = append(recent, recentOrderFromModel(o))
	}

	widgets := &Widgets{
		Live:         *live,
		TopProducts:  []analytics.TopProduct{},
		RecentOrders: recent,
		GeneratedAt:  s.clock.Now().UTC(),
	}

	snapshots, err := s.analytics.CachedSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	for _, snap := range snapshots {
		switch snap.MetricType {
		case enums.MetricTypeNetRevenue:
			var net analytics.NetRevenue
			if err := json.Unmarshal(snap.CalculatedData, &net); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard.metric.net_revenue_unreadable")
				continue
			}
			widgets.NetRevenue = &net
		case enums.MetricTypeTopProducts:
			var top []analytics.TopProduct
			if err := json.Unmarshal(snap.CalculatedData, &top); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dashboard.metric.top_products_unreadable")
				continue
			}
			if len(top) > topProductsLimit {
				top = top[:topProductsLimit]
			}
			widgets.TopProducts = top
		default:
			continue
		}
		// Snapshots arrive newest first.
		if widgets.SnapshotDate == nil {
			updated := snap.UpdatedAt
			widgets.SnapshotDate = &updated
		}
	}
	return widgets, nil
}
