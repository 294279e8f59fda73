package identity

import (
	"net/http"
	"strings"

	"github.com/foodbridge/server/pkg/cerr"
)

// Middleware resolves the bearer token on every request and stores the
// Caller in the request context. Requests without a resolvable identity are
// rejected before reaching any handler.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				cerr.SetNewJSONError(r.Context(), cerr.Unauthenticated, "missing bearer token", nil)
				return
			}
			caller, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				cerr.SetJSONError(r.Context(), err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
