package models

import "context"

// Role names understood by the readxs/writexs field tags
const (
	RoleUser   = "user"
	RoleOwner  = "owner"
	RoleSystem = "system"
)

// UserContext is the authenticated caller attached to a request
type UserContext struct {
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

type userContextKey struct{}

// WithUser attaches the caller to ctx
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the caller, if any
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey{}).(*UserContext)
	return user, ok && user != nil
}

// RolesFromContext falls back to the plain user role for anonymous callers
func RolesFromContext(ctx context.Context) []string {
	if user, ok := UserFromContext(ctx); ok && len(user.Roles) > 0 {
		return user.Roles
	}
	return []string{RoleUser}
}
