package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

type LiveMetrics struct {
	ActiveProducts int64     `json:"activeProducts"`
	TotalOrders    int64     `json:"totalOrders"`
	TotalExpenses  int64     `json:"totalExpenses"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

type NetRevenue struct {
	TotalRevenue           float64   `json:"totalRevenue"`
	TotalExpenses          float64   `json:"totalExpenses"`
	NetRevenue             float64   `json:"netRevenue"`
	ProfitMarginPercentage float64   `json:"profitMarginPercentage"`
	CalculatedAt           time.Time `json:"calculatedAt"`
	ComputationTimeMs      int64     `json:"computationTimeMs"`
}

type MonthlyTrend struct {
	Month      string  `json:"month"`
	Revenue    float64 `json:"revenue"`
	Expenses   float64 `json:"expenses"`
	NetProfit  float64 `json:"netProfit"`
	OrderCount int     `json:"orderCount"`
}

type ExpenseCategoryBreakdown struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TopProduct struct {
	ProductName  string  `json:"productName"`
	TotalSold    int     `json:"totalSold"`
	Revenue      float64 `json:"revenue"`
	AveragePrice float64 `json:"averagePrice"`
}

// MetricSnapshot is the durable result of the latest computation of one metric.
type MetricSnapshot struct {
	MetricType        enums.MetricType `json:"metricType"`
	CalculatedData    json.RawMessage  `json:"calculatedData"`
	ComputationTimeMs int64            `json:"computationTimeMs"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// RefreshResult is returned by both refresh operations. A cooldown rejection
// is a normal result, distinguished from a computation failure by
// CooldownRejected.
type RefreshResult struct {
	Success             bool                                 `json:"success"`
	MetricType          enums.MetricType                     `json:"metricType,omitempty"`
	CooldownRejected    bool                                 `json:"cooldownRejected"`
	CooldownRemainingMs int64                                `json:"cooldownRemainingMs,omitempty"`
	Error               string                               `json:"error,omitempty"`
	RunID               *uuid.UUID                           `json:"runId,omitempty"`
	DurationMs          int64                                `json:"durationMs,omitempty"`
	RefreshedAt         *time.Time                           `json:"refreshedAt,omitempty"`
	Data                map[enums.MetricType]json.RawMessage `json:"data,omitempty"`
}

type CooldownInfo struct {
	CanRefresh          bool  `json:"canRefresh"`
	CooldownRemainingMs int64 `json:"cooldownRemainingMs"`
}

// StatusReport backs the refresh status endpoint.
type StatusReport struct {
	LastRefreshed  *time.Time                        `json:"lastRefreshed"`
	IsStale        bool                              `json:"isStale"`
	CooldownStatus map[enums.MetricType]CooldownInfo `json:"cooldownStatus"`
	CanRefresh     bool                              `json:"canRefresh"`
}

// RefreshRun is the audit view of one refresh attempt.
type RefreshRun struct {
	ID                uuid.UUID           `json:"id"`
	MetricType        *enums.MetricType   `json:"metricType"`
	Status            enums.RefreshStatus `json:"status"`
	TriggeredBy       string              `json:"triggeredBy"`
	LastRefreshAt     time.Time           `json:"lastRefreshAt"`
	RefreshDurationMs *int64              `json:"refreshDurationMs"`
	ErrorMessage      *string             `json:"errorMessage"`
	CreatedAt         time.Time           `json:"createdAt"`
}
