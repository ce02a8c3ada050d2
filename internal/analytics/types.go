package analytics

import (
	"time"

	"github.com/angelmondragon/gemline-backend/pkg/types"
)

// CooldownPeriod is the minimum interval between two computations of the same metric.
const CooldownPeriod = 5 * time.Minute

const (
	defaultActor          = "system"
	uncategorizedLabel    = "Uncategorized"
	unknownProductLabel   = "Unknown Product"
	topProductsLimit      = 10
	monthlyTrendsMonths   = 12
	monthBucketLayout     = "2006-01"
	defaultStaleAfter     = time.Hour
	cooldownMessageFormat = "%s was refreshed recently; try again in %ds"
	defaultRecentRuns     = 20
	maxRecentRuns         = 100
)

type (
	LiveMetrics              = types.LiveMetrics
	NetRevenue               = types.NetRevenue
	MonthlyTrend             = types.MonthlyTrend
	ExpenseCategoryBreakdown = types.ExpenseCategoryBreakdown
	TopProduct               = types.TopProduct
	MetricSnapshot           = types.MetricSnapshot
	RefreshResult            = types.RefreshResult
	CooldownInfo             = types.CooldownInfo
	StatusReport             = types.StatusReport
	RefreshRun               = types.RefreshRun
	Period                   = types.Period
	PeriodReport             = types.PeriodReport
)

const (
	PeriodThisWeek    = types.PeriodThisWeek
	PeriodThisMonth   = types.PeriodThisMonth
	PeriodLast3Months = types.PeriodLast3Months
	PeriodThisYear    = types.PeriodThisYear
	DefaultPeriod     = types.DefaultPeriod
)

// ParsePeriod converts raw input into a Period; empty input yields DefaultPeriod.
func ParsePeriod(value string) (Period, error) {
	return types.ParsePeriod(value)
}
