package analytics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/angelmondragon/gemline-backend/api/middleware"
	"github.com/angelmondragon/gemline-backend/api/responses"
	"github.com/angelmondragon/gemline-backend/api/validators"
	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

// RefreshResponse is returned by the refresh endpoint on success.
type RefreshResponse struct {
	Result         *analytics.RefreshResult                    `json:"result"`
	CooldownStatus map[enums.MetricType]analytics.CooldownInfo `json:"cooldownStatus"`
}

// PeriodAnalytics aggregates the requested preset window inline.
func PeriodAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		period, err := resolvePeriod(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		report, err := service.PeriodReport(ctx, period)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

func CachedAnalytics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		data, err := service.CachedAnalytics(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}

func LiveMetrics(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		live, err := service.LiveMetrics(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, live)
	}
}

// Refresh recomputes one metric (?metric=) or all of them. Cooldown
// rejections map to 429 with the remaining wait in the error details.
func Refresh(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		metricType, err := resolveMetric(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := middleware.ActorFromContext(ctx)

		var res *analytics.RefreshResult
		if metricType == "" {
			res, err = service.RefreshAllAnalytics(ctx, actor)
		} else {
			res, err = service.RefreshAnalytics(ctx, metricType, actor)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := service.CooldownStatus(ctx)
		switch {
		case res.Success:
			responses.WriteSuccessMessage(w, RefreshResponse{Result: res, CooldownStatus: status}, refreshMessage(metricType))
		case res.CooldownRejected:
			seconds := (res.CooldownRemainingMs + 999) / 1000
			w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeCooldown, res.Error).WithDetails(map[string]any{
				"metricType":          res.MetricType,
				"cooldownRemainingMs": res.CooldownRemainingMs,
				"cooldownStatus":      status,
			}))
		default:
			failure := pkgerrors.New(pkgerrors.CodeRefreshFailed, res.Error).WithDetail("cooldownStatus", status)
			if res.MetricType != "" {
				failure.WithDetail("metricType", res.MetricType)
			}
			if res.RunID != nil {
				failure.WithDetail("runId", res.RunID.String())
			}
			responses.WriteError(ctx, logg, w, failure)
		}
	}
}

func refreshMessage(metricType enums.MetricType) string {
	if metricType == "" {
		return "all analytics refreshed"
	}
	return fmt.Sprintf("%s refreshed", metricType)
}

func Status(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		report, err := service.Status(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Runs lists the latest refresh attempts (?limit=, 1..100).
func Runs(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		limit, err := validators.ParseQueryInt(r, "limit", defaultRunsLimit, 1, maxRunsLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		runs, err := service.RecentRuns(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, runs)
	}
}
