package dashboard

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/gemline-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dashboard repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
