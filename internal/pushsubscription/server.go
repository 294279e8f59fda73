package pushsubscription

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/pkg/cerr"
)

// Server lets callers register and drop their own push endpoints.
type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/push/subscriptions", s.subscribe)
	r.Delete("/push/subscriptions", s.unsubscribe)
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.CallerFromContext(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint and keys are required", nil)
		return
	}

	sub := &Subscription{
		ID:        ulid.Make().String(),
		UserID:    caller.UserID,
		Role:      string(caller.Role),
		Endpoint:  req.Endpoint,
		Keys:      req.Keys,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, sub)
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.CallerFromContext(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}

	if err := s.repo.DeleteByEndpoint(ctx, caller.UserID, req.Endpoint); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]bool{"deleted": true})
}
