package geocode

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/pkg/cerr"
)

// Server proxies address autocomplete so browser clients never talk to the
// mapping provider directly.
type Server struct {
	geocoder Geocoder
}

func NewServer(geocoder Geocoder) *Server {
	return &Server{geocoder: geocoder}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/geocode/autocomplete", s.autocomplete)
}

func (s *Server) autocomplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.CallerFromContext(ctx); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	text := r.URL.Query().Get("q")
	if text == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "q query parameter is required", nil)
		return
	}

	suggestions, err := s.geocoder.Autocomplete(ctx, text)
	if err != nil {
		cerr.SetNewJSONError(ctx, cerr.Unavailable, "geocoding provider unavailable", err)
		return
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	cerr.SetJSONResponse(ctx, suggestions)
}
