package user

import (
	"context"
	"time"
)

// Role is the authorization tag attached to a principal.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleUnset  Role = ""
)

// User is a signed-up principal.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal identifies the caller of an operation.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// SignedIn reports whether the principal has an identity.
func (p Principal) SignedIn() bool {
	return p.ID != ""
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal from context. The zero Principal
// (no id, role unset) is returned when none is present.
func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}
