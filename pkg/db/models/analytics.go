package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

// AnalyticsMetric stores the latest computed payload for one metric type.
type AnalyticsMetric struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	MetricType        enums.MetricType `gorm:"column:metric_type;type:text;not null;uniqueIndex"`
	CalculatedData    datatypes.JSON   `gorm:"column:calculated_data;not null"`
	ComputationTimeMs int64            `gorm:"column:computation_time_ms;not null;default:0"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime:false;not null"`
}

func (AnalyticsMetric) TableName() string { return "analytics_metrics" }

func (m *AnalyticsMetric) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// AnalyticsRefreshRun audits one refresh attempt. MetricType is nil for all-metric runs.
type AnalyticsRefreshRun struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	MetricType        *enums.MetricType   `gorm:"column:metric_type;type:text"`
	Status            enums.RefreshStatus `gorm:"column:status;type:text;not null"`
	TriggeredBy       string              `gorm:"column:triggered_by;not null;default:system"`
	LastRefreshAt     time.Time           `gorm:"column:last_refresh_at;not null"`
	RefreshDurationMs *int64              `gorm:"column:refresh_duration_ms"`
	ErrorMessage      *string             `gorm:"column:error_message"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (AnalyticsRefreshRun) TableName() string { return "analytics_refresh_runs" }

func (r *AnalyticsRefreshRun) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// AnalyticsSnapshot is the dated bundle written after every full refresh.
type AnalyticsSnapshot struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SnapshotDate     time.Time      `gorm:"column:snapshot_date;type:date;not null;index"`
	NetRevenue       datatypes.JSON `gorm:"column:net_revenue;not null"`
	MonthlyTrends    datatypes.JSON `gorm:"column:monthly_trends;not null"`
	ExpenseBreakdown datatypes.JSON `gorm:"column:expense_breakdown;not null"`
	TopProducts      datatypes.JSON `gorm:"column:top_products;not null"`
	TriggeredBy      string         `gorm:"column:triggered_by;not null"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (AnalyticsSnapshot) TableName() string { return "analytics_snapshots" }

func (s *AnalyticsSnapshot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
