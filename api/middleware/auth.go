package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/gemline-backend/api/responses"
	"github.com/angelmondragon/gemline-backend/pkg/auth"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

// bearerToken extracts the credential from the Authorization header. The
// scheme is optional and case-insensitive.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

// Auth admits requests carrying a valid admin token and records the caller
// identity on the request context and logger.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := auth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.Subject, claims.Actor(), claims.Role)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.Subject,
					"actor":      claims.Actor(),
					"actor_role": string(claims.Role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
