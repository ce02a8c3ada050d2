package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/gemline-backend/pkg/auth"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "gemline", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.AdminRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		Subject: "user-1",
		Email:   "owner@gemline.test",
		Role:    role,
	})
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other := testJWT
	other.Issuer = "someone-else"
	token := mintTestToken(t, other, enums.AdminRoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthSeedsIdentity(t *testing.T) {
	token := mintTestToken(t, testJWT, enums.AdminRoleAdmin)

	var subject, actor string
	var role enums.AdminRole
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = SubjectFromContext(r.Context())
		actor = ActorFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", subject)
	assert.Equal(t, "owner@gemline.test", actor)
	assert.Equal(t, enums.AdminRoleAdmin, role)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.AdminRoleAdmin)(okHandler())

	staff := httptest.NewRequest(http.MethodGet, "/", nil)
	staff = staff.WithContext(WithIdentity(context.Background(), "u", "staff@gemline.test", enums.AdminRoleStaff))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, staff)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := httptest.NewRequest(http.MethodGet, "/", nil)
	admin = admin.WithContext(WithIdentity(context.Background(), "u", "owner@gemline.test", enums.AdminRoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer   abc  ": "abc",
		"BEARER abc":     "abc",
		"abc":            "abc",
		"Bearer ":        "",
		"Basic dXNlcjpw": "Basic dXNlcjpw",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(req), "header %q", header)
	}
}
