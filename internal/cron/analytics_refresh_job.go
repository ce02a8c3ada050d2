package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

const defaultCronActor = "cron"

type analyticsRefresher interface {
	RefreshAllAnalytics(ctx context.Context, actor string) (*analytics.RefreshResult, error)
}

type AnalyticsRefreshJobParams struct {
	Logger    *logger.Logger
	Analytics analyticsRefresher
	// Actor is recorded as triggered_by on the run; defaults to "cron".
	Actor string
}

func NewAnalyticsRefreshJob(params AnalyticsRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Analytics == nil {
		return nil, fmt.Errorf("analytics service required")
	}
	actor := params.Actor
	if actor == "" {
		actor = defaultCronActor
	}
	return &analyticsRefreshJob{logg: params.Logger, analytics: params.Analytics, actor: actor}, nil
}

type analyticsRefreshJob struct {
	logg      *logger.Logger
	analytics analyticsRefresher
	actor     string
}

func (j *analyticsRefreshJob) Name() string { return "analytics-refresh" }

// Run refreshes every metric. A cooldown rejection means someone refreshed
// recently and is not a failure.
func (j *analyticsRefreshJob) Run(ctx context.Context) error {
	res, err := j.analytics.RefreshAllAnalytics(ctx, j.actor)
	if err != nil {
		return fmt.Errorf("refresh analytics: %w", err)
	}
	if res.CooldownRejected {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"metric_type":           string(res.MetricType),
			"cooldown_remaining_ms": res.CooldownRemainingMs,
		}), "analytics refresh skipped; cooldown active")
		return nil
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	logCtx := j.logg.WithField(ctx, "duration_ms", res.DurationMs)
	if res.RunID != nil {
		logCtx = j.logg.WithField(logCtx, "run_id", res.RunID.String())
	}
	j.logg.Info(logCtx, "analytics refresh complete")
	return nil
}
