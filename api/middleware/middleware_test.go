package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
)

func TestRequestIDPropagatesOrMints(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	minted := rec.Header().Get(requestIDHeader)
	assert.NotEmpty(t, minted)
	assert.LessOrEqual(t, len(minted), maxRequestIDLength)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\n")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id\n", rec.Header().Get(requestIDHeader))
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestLoggingRecordsStatusAndRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: buf})

	r := chi.NewRouter()
	r.Use(Logging(logg, metrics.NewHTTPMetrics(reg)))
	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/42", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"route":"/runs/{id}"`)
	assert.Contains(t, buf.String(), `"status":418`)

	series, err := testutil.GatherAndCount(reg, "gemline_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestLoggingWithoutLoggerOrMetrics(t *testing.T) {
	handler := Logging(nil, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRateLimit(t *testing.T) {
	handler := RefreshRateLimit(2, time.Minute, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Contains(t, rec.Body.String(), `"RATE_LIMIT_EXCEEDED"`)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshRateLimitDisabled(t *testing.T) {
	handler := RefreshRateLimit(0, time.Minute, nil)(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/refresh", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
