package dashboard

import (
	"context"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/db/models"
)

// Repository reads the rows the widget bundle is assembled from.
type Repository interface {
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
}

// analyticsReader is the slice of the analytics service the dashboard needs.
type analyticsReader interface {
	LiveMetrics(ctx context.Context) (*analytics.LiveMetrics, error)
	CachedSnapshots(ctx context.Context) ([]analytics.MetricSnapshot, error)
}
