package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gemline-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/gemline-backend/api/controllers/analytics"
	dashboardcontrollers "github.com/angelmondragon/gemline-backend/api/controllers/dashboard"
	"github.com/angelmondragon/gemline-backend/api/middleware"
	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
)

const refreshRateWindow = time.Minute

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Gatherer  prometheus.Gatherer
	HTTP      *metrics.HTTPMetrics
	Analytics analytics.Service
	Dashboard dashboard.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, params.HTTP),
		middleware.CORS(cfg.CORS),
	)

	deps := map[string]controllers.Pinger{"db": params.DB, "redis": params.Redis}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if params.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.AdminRoleAdmin, enums.AdminRoleStaff))

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/", analyticscontrollers.PeriodAnalytics(params.Analytics, logg))
			r.Get("/cached", analyticscontrollers.CachedAnalytics(params.Analytics, logg))
			r.Get("/live", analyticscontrollers.LiveMetrics(params.Analytics, logg))
			r.Get("/status", analyticscontrollers.Status(params.Analytics, logg))
			r.Get("/runs", analyticscontrollers.Runs(params.Analytics, logg))
			r.With(
				middleware.RequireRole(logg, enums.AdminRoleAdmin),
				middleware.RefreshRateLimit(cfg.Analytics.RefreshRateLimit, refreshRateWindow, logg),
			).Post("/refresh", analyticscontrollers.Refresh(params.Analytics, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/widgets", dashboardcontrollers.Widgets(params.Dashboard, logg))
			r.With(middleware.RequireRole(logg, enums.AdminRoleAdmin)).
				Post("/widgets/refresh", dashboardcontrollers.RefreshWidgets(params.Dashboard, logg))
		})
	})

	return r
}
