package analytics

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gemline-backend/api/validators"
	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type refreshQuery struct {
	Metric string `query:"metric" validate:"omitempty,oneof=net_revenue monthly_trends expense_breakdown top_products"`
}

func resolvePeriod(r *http.Request) (analytics.Period, error) {
	period, err := analytics.ParsePeriod(validators.QueryString(r, "period"))
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid period").WithDetails(map[string]any{
			"period":  r.URL.Query().Get("period"),
			"allowed": []analytics.Period{analytics.PeriodThisWeek, analytics.PeriodThisMonth, analytics.PeriodLast3Months, analytics.PeriodThisYear},
		})
	}
	return period, nil
}

// resolveMetric returns the requested metric type, or "" when every metric should refresh.
func resolveMetric(r *http.Request) (enums.MetricType, error) {
	q := refreshQuery{Metric: strings.ToLower(validators.QueryString(r, "metric"))}
	if err := validators.Struct(q); err != nil {
		return "", err
	}
	if q.Metric == "" {
		return "", nil
	}
	return enums.ParseMetricType(q.Metric)
}
