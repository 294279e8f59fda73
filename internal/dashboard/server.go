package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/metrics"
	"github.com/foodbridge/server/pkg/cerr"
)

// Server exposes the admin summary and the per-user counters.
type Server struct {
	service *Service
	ledger  *metrics.Ledger
}

func NewServer(service *Service, ledger *metrics.Ledger) *Server {
	return &Server{service: service, ledger: ledger}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/metrics/dashboard", s.summary)
	r.Get("/metrics/users/{userID}", s.userMetrics)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	sum, err := s.service.Summarize(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sum)
}

// userMetrics lets admins read anyone and everyone else read themselves.
func (s *Server) userMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.CallerFromContext(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	if caller.Role != identity.RoleAdmin && caller.UserID != userID {
		cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "cannot read another user's metrics", nil)
		return
	}

	m, err := s.ledger.Get(ctx, userID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, m)
}
