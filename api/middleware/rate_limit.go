package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/angelmondragon/gemline-backend/api/responses"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

// RefreshRateLimit throttles the refresh endpoints per client IP, in front of
// the per-metric cooldown. A non-positive limit disables it.
func RefreshRateLimit(limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"limit": limit, "window_seconds": int(window.Seconds())})
			}
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many refresh requests"))
		}),
	)
}
