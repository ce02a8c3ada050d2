package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/auth"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAnalytics struct {
	analytics.Service
	refreshes int
}

func (s *stubAnalytics) RefreshAllAnalytics(context.Context, string) (*analytics.RefreshResult, error) {
	s.refreshes++
	return &analytics.RefreshResult{Success: true}, nil
}

func (s *stubAnalytics) CooldownStatus(context.Context) map[enums.MetricType]analytics.CooldownInfo {
	return map[enums.MetricType]analytics.CooldownInfo{}
}

func (s *stubAnalytics) Status(context.Context) (*analytics.StatusReport, error) {
	return &analytics.StatusReport{IsStale: true, CanRefresh: true}, nil
}

type stubDashboard struct{}

func (stubDashboard) Widgets(context.Context) (*dashboard.Widgets, error) {
	return &dashboard.Widgets{}, nil
}

func (stubDashboard) RefreshWidgets(context.Context) (*dashboard.Widgets, error) {
	return &dashboard.Widgets{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "dev"},
		JWT:       config.JWTConfig{Secret: "secret", Issuer: "gemline", ExpirationMinutes: 60},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Analytics: config.AnalyticsConfig{RefreshRateLimit: 2},
	}
}

func newTestRouter(t *testing.T, svc *stubAnalytics) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewAnalyticsMetrics(reg).IncOutcome("all", metrics.OutcomeCompleted)
	return NewRouter(RouterParams{
		Config:    cfg,
		Logger:    logger.Nop(),
		DB:        stubPinger{},
		Gatherer:  reg,
		HTTP:      metrics.NewHTTPMetrics(reg),
		Analytics: svc,
		Dashboard: stubDashboard{},
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.AdminRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		Subject: "user-1",
		Email:   "owner@gemline.test",
		Role:    role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(router http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubAnalytics{})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live", "").Code)
	ready := serve(router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, ready.Code)
	assert.Contains(t, ready.Body.String(), `"redis":"disabled"`)
}

func TestMetricsRoute(t *testing.T) {
	router, _ := newTestRouter(t, &stubAnalytics{})

	serve(router, http.MethodGet, "/health/live", "")
	rec := serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gemline_analytics_refresh_total")
	assert.Contains(t, rec.Body.String(), `gemline_http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t, &stubAnalytics{})

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/analytics/status", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/dashboard/widgets", "").Code)
}

func TestStaffCanReadButNotRefresh(t *testing.T) {
	svc := &stubAnalytics{}
	router, cfg := newTestRouter(t, svc)
	staff := bearer(t, cfg, enums.AdminRoleStaff)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/admin/analytics/status", staff).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/admin/dashboard/widgets", staff).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPost, "/api/admin/analytics/refresh", staff).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPost, "/api/admin/dashboard/widgets/refresh", staff).Code)
	assert.Zero(t, svc.refreshes)
}

func TestRefreshIsRateLimited(t *testing.T) {
	svc := &stubAnalytics{}
	router, cfg := newTestRouter(t, svc)
	admin := bearer(t, cfg, enums.AdminRoleAdmin)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/admin/analytics/refresh", admin).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/admin/analytics/refresh", admin).Code)

	limited := serve(router, http.MethodPost, "/api/admin/analytics/refresh", admin)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, 2, svc.refreshes)
}
