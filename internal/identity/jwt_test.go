package identity

import (
	"context"
	"testing"
	"time"

	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/pkg/cerr"
)

func TestJWTResolverRoundTrip(t *testing.T) {
	resolver := NewJWTResolver(&config.AuthEnv{JWTSecret: "test-secret"})

	token, err := resolver.Mint(Caller{UserID: "vol-1", Role: RoleVolunteer}, time.Hour)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	caller, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if caller.UserID != "vol-1" {
		t.Errorf("expected user vol-1, got %s", caller.UserID)
	}
	if caller.Role != RoleVolunteer {
		t.Errorf("expected role volunteer, got %s", caller.Role)
	}
}

func TestJWTResolverRejects(t *testing.T) {
	resolver := NewJWTResolver(&config.AuthEnv{JWTSecret: "test-secret"})
	other := NewJWTResolver(&config.AuthEnv{JWTSecret: "other-secret"})

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage token",
			token: func(t *testing.T) string { return "not-a-jwt" },
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				tok, err := other.Mint(Caller{UserID: "vol-1", Role: RoleVolunteer}, time.Hour)
				if err != nil {
					t.Fatalf("Mint failed: %v", err)
				}
				return tok
			},
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				tok, err := resolver.Mint(Caller{UserID: "vol-1", Role: RoleVolunteer}, -time.Minute)
				if err != nil {
					t.Fatalf("Mint failed: %v", err)
				}
				return tok
			},
		},
		{
			name: "unknown role",
			token: func(t *testing.T) string {
				tok, err := resolver.Mint(Caller{UserID: "vol-1", Role: Role("superuser")}, time.Hour)
				if err != nil {
					t.Fatalf("Mint failed: %v", err)
				}
				return tok
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.token(t))
			if err == nil {
				t.Fatal("expected error, got none")
			}
			if !cerr.IsCode(err, cerr.Unauthenticated) {
				t.Errorf("expected Unauthenticated, got %v", err)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ctx := ContextWithCaller(context.Background(), Caller{UserID: "adm-1", Role: RoleAdmin})

	if _, err := RequireRole(ctx, RoleAdmin); err != nil {
		t.Errorf("admin should pass admin gate: %v", err)
	}
	if _, err := RequireRole(ctx, RoleVolunteer); !cerr.IsCode(err, cerr.PermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
	if _, err := RequireRole(context.Background(), RoleAdmin); !cerr.IsCode(err, cerr.Unauthenticated) {
		t.Errorf("expected Unauthenticated for missing caller, got %v", err)
	}
}
