package enums

import "fmt"

// MetricType identifies one of the derived analytics computations.
type MetricType string

const (
	MetricTypeNetRevenue       MetricType = "net_revenue"
	MetricTypeMonthlyTrends    MetricType = "monthly_trends"
	MetricTypeExpenseBreakdown MetricType = "expense_breakdown"
	MetricTypeTopProducts      MetricType = "top_products"
)

var validMetricTypes = []MetricType{
	MetricTypeNetRevenue,
	MetricTypeMonthlyTrends,
	MetricTypeExpenseBreakdown,
	MetricTypeTopProducts,
}

// AllMetricTypes returns the metric types in canonical order.
func AllMetricTypes() []MetricType {
	out := make([]MetricType, len(validMetricTypes))
	copy(out, validMetricTypes)
	return out
}

// String implements fmt.Stringer.
func (m MetricType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MetricType.
func (m MetricType) IsValid() bool {
	for _, candidate := range validMetricTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMetricType converts raw input into a MetricType.
func ParseMetricType(value string) (MetricType, error) {
	for _, candidate := range validMetricTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid metric type %q", value)
}
