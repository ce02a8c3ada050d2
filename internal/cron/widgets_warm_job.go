package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

type WidgetsWarmJobParams struct {
	Logger    *logger.Logger
	Dashboard dashboard.Service
}

// NewWidgetsWarmJob rebuilds the dashboard bundle after the analytics refresh
// so the shared cache carries the new snapshot.
func NewWidgetsWarmJob(params WidgetsWarmJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dashboard == nil {
		return nil, fmt.Errorf("dashboard service required")
	}
	return &widgetsWarmJob{logg: params.Logger, dashboard: params.Dashboard}, nil
}

type widgetsWarmJob struct {
	logg      *logger.Logger
	dashboard dashboard.Service
}

func (j *widgetsWarmJob) Name() string { return "dashboard-widgets-warm" }

func (j *widgetsWarmJob) Run(ctx context.Context) error {
	widgets, err := j.dashboard.RefreshWidgets(ctx)
	if err != nil {
		return fmt.Errorf("refresh widgets: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "generated_at", widgets.GeneratedAt), "dashboard widgets warmed")
	return nil
}
