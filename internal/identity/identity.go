package identity

import (
	"context"

	"github.com/foodbridge/server/pkg/cerr"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleVolunteer Role = "volunteer"
	RoleDonor     Role = "donor"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleVolunteer, RoleDonor:
		return true
	}
	return false
}

// Caller is the resolved identity of an inbound request. The core trusts
// this pair as-is; verification belongs to the Resolver.
type Caller struct {
	UserID string
	Role   Role
}

// Resolver turns a bearer token into a Caller. Implemented by the JWT
// resolver in production and by stubs in tests.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Caller, error)
}

type callerKey struct{}

func ContextWithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFromContext(ctx context.Context) (Caller, error) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	if !ok {
		return Caller{}, cerr.NewError(cerr.Unauthenticated, "caller not resolved", nil)
	}
	return c, nil
}

// RequireRole returns the caller when it holds one of the given roles.
func RequireRole(ctx context.Context, roles ...Role) (Caller, error) {
	c, err := CallerFromContext(ctx)
	if err != nil {
		return Caller{}, err
	}
	for _, r := range roles {
		if c.Role == r {
			return c, nil
		}
	}
	return Caller{}, cerr.NewError(cerr.PermissionDenied, "insufficient role for this operation", nil)
}
