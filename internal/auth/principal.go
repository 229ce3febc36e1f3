package auth

import (
	"context"

	"github.com/tenantry/rentd/internal/store"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID string
	Role   store.Role
}

// IsAdmin reports whether the principal has the admin role.
func (p *Principal) IsAdmin() bool { return p.Role == store.RoleAdmin }

// IsStaff reports whether the principal is staff or admin.
func (p *Principal) IsStaff() bool {
	return p.Role == store.RoleAdmin || p.Role == store.RoleStaff
}

type ctxKey struct{}

// ContextWithPrincipal attaches the principal to the context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the request principal, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok
}
