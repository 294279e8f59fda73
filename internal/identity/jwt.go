package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/pkg/cerr"
)

// JWTResolver verifies HS256 tokens minted by the auth provider. The token
// subject is the user id; a "role" claim carries the caller role.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(env *config.AuthEnv) *JWTResolver {
	return &JWTResolver{secret: []byte(env.JWTSecret)}
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (r *JWTResolver) Resolve(_ context.Context, token string) (Caller, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return r.secret, nil
	})
	if err != nil {
		return Caller{}, cerr.NewError(cerr.Unauthenticated, "invalid token", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Caller{}, cerr.NewError(cerr.Unauthenticated, "invalid token", nil)
	}
	role := Role(c.Role)
	if c.Subject == "" || !role.Valid() {
		return Caller{}, cerr.NewError(cerr.Unauthenticated, "token is missing subject or role", nil)
	}
	return Caller{UserID: c.Subject, Role: role}, nil
}

// Mint issues a token for the given caller. Used by the admin CLI and by
// tests; production tokens come from the external auth provider.
func (r *JWTResolver) Mint(caller Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: string(caller.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
