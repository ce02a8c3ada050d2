package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/gemline-backend/api/responses"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gemline-backend/pkg/errors"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
)

// RequireRole admits callers whose token role is one of allowed. It must run
// after Auth; a request without identity is forbidden.
func RequireRole(logg *logger.Logger, allowed ...enums.AdminRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role != "" && slices.Contains(allowed, role) {
				next.ServeHTTP(w, r)
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required").
				WithDetail("role", string(role)))
		})
	}
}
