package auth

import (
	"context"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// Principal is the identity a route guard checks. Implementations must be
// safe to call on a nil receiver.
type Principal interface {
	SubjectID() string
	Authenticated() bool
	Roles() RoleSet
}

// WithPrincipal stores p on ctx. A nil principal leaves ctx unchanged.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if p == nil {
		return ctx
	}
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the principal on ctx, or nil.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(PrincipalKey).(Principal)
	return p
}

func UserIDFromContext(ctx context.Context) string {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return ""
	}
	return p.SubjectID()
}

func RolesFromContext(ctx context.Context) RoleSet {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return 0
	}
	return p.Roles()
}
