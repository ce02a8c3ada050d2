package middleware

import (
	"context"

	"github.com/angelmondragon/gemline-backend/pkg/enums"
)

// identity is the authenticated caller stored on the request context.
type identity struct {
	subject string
	actor   string
	role    enums.AdminRole
}

type identityKey struct{}

// WithIdentity seeds ctx with an authenticated caller. Auth calls it for real
// requests; handler tests call it directly.
func WithIdentity(ctx context.Context, subject, actor string, role enums.AdminRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity{subject: subject, actor: actor, role: role})
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func SubjectFromContext(ctx context.Context) string {
	return identityFrom(ctx).subject
}

// ActorFromContext returns the identity recorded as triggered_by for work
// started by the current request.
func ActorFromContext(ctx context.Context) string {
	return identityFrom(ctx).actor
}

func RoleFromContext(ctx context.Context) enums.AdminRole {
	return identityFrom(ctx).role
}
