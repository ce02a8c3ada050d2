package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/gemline-backend/pkg/db/models"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

type orderAmountRow struct {
	TotalAmount decimal.Decimal `gorm:"column:total_amount"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
}

type expenseAmountRow struct {
	Amount      decimal.Decimal `gorm:"column:amount"`
	ExpenseDate time.Time       `gorm:"column:expense_date"`
}

type categorizedExpenseRow struct {
	CategoryName *string         `gorm:"column:category_name"`
	Amount       decimal.Decimal `gorm:"column:amount"`
}

type soldItemRow struct {
	Quantity        int             `gorm:"column:quantity"`
	Subtotal        decimal.Decimal `gorm:"column:subtotal"`
	ProductSnapshot datatypes.JSON  `gorm:"column:product_snapshot"`
}

// store is the data access surface the service depends on.
type store interface {
	CountActiveProducts(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)
	CountExpenses(ctx context.Context) (int64, error)
	RevenueOrders(ctx context.Context, from, to time.Time) ([]orderAmountRow, error)
	Expenses(ctx context.Context, from, to time.Time) ([]expenseAmountRow, error)
	CategorizedExpenses(ctx context.Context) ([]categorizedExpenseRow, error)
	SoldItems(ctx context.Context) ([]soldItemRow, error)
	UpsertMetric(ctx context.Context, metric *models.AnalyticsMetric) error
	ListMetrics(ctx context.Context) ([]models.AnalyticsMetric, error)
	CreateRun(ctx context.Context, run *models.AnalyticsRefreshRun) error
	ResolveRun(ctx context.Context, id uuid.UUID, status enums.RefreshStatus, durationMs int64, errMsg *string) (bool, error)
	CreateSnapshot(ctx context.Context, snapshot *models.AnalyticsSnapshot) error
	RecentRuns(ctx context.Context, limit int) ([]models.AnalyticsRefreshRun, error)
}

// Repository reads order/expense data and persists analytics results.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountActiveProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (r *Repository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountExpenses(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Expense{}).Count(&count).Error
	return count, err
}

// RevenueOrders returns non-cancelled orders created in [from, to). Zero bounds are open.
func (r *Repository) RevenueOrders(ctx context.Context, from, to time.Time) ([]orderAmountRow, error) {
	q := r.db.WithContext(ctx).
		Table("orders").
		Select("total_amount, created_at").
		Where("status <> ?", string(enums.OrderStatusCancelled))
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	var rows []orderAmountRow
	if err := q.Order("created_at ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Expenses returns expenses dated in [from, to). Zero bounds are open.
func (r *Repository) Expenses(ctx context.Context, from, to time.Time) ([]expenseAmountRow, error) {
	q := r.db.WithContext(ctx).Table("expenses").Select("amount, expense_date")
	if !from.IsZero() {
		q = q.Where("expense_date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("expense_date < ?", to)
	}
	var rows []expenseAmountRow
	if err := q.Order("expense_date ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CategorizedExpenses joins every expense to its category. Expenses in
// inactive categories are skipped; uncategorized ones come back with a nil name.
func (r *Repository) CategorizedExpenses(ctx context.Context) ([]categorizedExpenseRow, error) {
	var rows []categorizedExpenseRow
	err := r.db.WithContext(ctx).
		Table("expenses AS e").
		Select("c.name AS category_name, e.amount").
		Joins("LEFT JOIN expense_categories AS c ON c.id = e.category_id").
		Where("c.id IS NULL OR c.is_active = ?", true).
		Order("e.created_at ASC, e.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SoldItems returns order lines belonging to non-cancelled orders.
func (r *Repository) SoldItems(ctx context.Context) ([]soldItemRow, error) {
	var rows []soldItemRow
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.quantity, oi.subtotal, oi.product_snapshot").
		Joins("JOIN orders AS o ON o.id = oi.order_id").
		Where("o.status <> ?", string(enums.OrderStatusCancelled)).
		Order("oi.created_at ASC, oi.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertMetric writes the metric, overwriting any previous row of the same type.
func (r *Repository) UpsertMetric(ctx context.Context, metric *models.AnalyticsMetric) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "metric_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"calculated_data", "computation_time_ms", "updated_at"}),
		}).
		Create(metric).Error
}

// ListMetrics returns every stored metric, most recently updated first.
func (r *Repository) ListMetrics(ctx context.Context) ([]models.AnalyticsMetric, error) {
	var metrics []models.AnalyticsMetric
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&metrics).Error; err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *Repository) CreateRun(ctx context.Context, run *models.AnalyticsRefreshRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// ResolveRun moves a processing run to a terminal status. It reports false
// when the run was already terminal, leaving it untouched.
func (r *Repository) ResolveRun(ctx context.Context, id uuid.UUID, status enums.RefreshStatus, durationMs int64, errMsg *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AnalyticsRefreshRun{}).
		Where("id = ? AND status = ?", id, string(enums.RefreshStatusProcessing)).
		Updates(map[string]any{
			"status":              string(status),
			"refresh_duration_ms": durationMs,
			"error_message":       errMsg,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateSnapshot(ctx context.Context, snapshot *models.AnalyticsSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// RecentRuns lists the latest refresh runs, newest first.
func (r *Repository) RecentRuns(ctx context.Context, limit int) ([]models.AnalyticsRefreshRun, error) {
	if limit <= 0 {
		limit = defaultRecentRuns
	}
	var runs []models.AnalyticsRefreshRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
