package volunteer

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/foodbridge/server/internal/geocode"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/geo"
)

// Server exposes volunteer registration, profile updates and the proximity
// ranking used by admins when picking an assignee.
type Server struct {
	repo     Repository
	geocoder geocode.Geocoder
}

func NewServer(repo Repository, geocoder geocode.Geocoder) *Server {
	return &Server{repo: repo, geocoder: geocoder}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/volunteers", s.register)
	r.Get("/volunteers", s.list)
	r.Get("/volunteers/rank", s.rank)
	r.Patch("/volunteers/{volunteerID}/location", s.updateLocation)
	r.Patch("/volunteers/{volunteerID}/status", s.updateStatus)
}

type registerRequest struct {
	Name    string     `json:"name"`
	Phone   string     `json:"phone"`
	Home    *geo.Point `json:"home"`
	Address string     `json:"address"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Name == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "name is required", nil)
		return
	}

	now := time.Now()
	v := &Volunteer{
		ID:        ulid.Make().String(),
		Name:      req.Name,
		Phone:     req.Phone,
		Status:    StatusActive,
		Home:      req.Home,
		Address:   req.Address,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.resolveLocation(r, v)

	if err := s.repo.Create(ctx, v); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, v)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	volunteers, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, volunteers)
}

type rankedEntry struct {
	Volunteer  *Volunteer `json:"volunteer"`
	DistanceKm *float64   `json:"distanceKm"`
}

// rank orders active volunteers by distance to the given pickup point.
// distanceKm is null for volunteers with no recorded home.
func (s *Server) rank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if errLng != nil || errLat != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "lat and lng query parameters are required", nil)
		return
	}

	volunteers, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	ranked := RankByProximity(volunteers, geo.Point{Longitude: lng, Latitude: lat})
	out := make([]rankedEntry, 0, len(ranked))
	for _, entry := range ranked {
		e := rankedEntry{Volunteer: entry.Volunteer}
		if !math.IsInf(entry.DistanceKm, 1) {
			dist := entry.DistanceKm
			e.DistanceKm = &dist
		}
		out = append(out, e)
	}
	cerr.SetJSONResponse(ctx, out)
}

type locationRequest struct {
	Home    *geo.Point `json:"home"`
	Address string     `json:"address"`
}

// updateLocation lets a volunteer move their own home point, or an admin move
// anyone's. An address without coordinates is forward geocoded when a
// provider is configured.
func (s *Server) updateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.RequireRole(ctx, identity.RoleAdmin, identity.RoleVolunteer)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	volunteerID := chi.URLParam(r, "volunteerID")
	if caller.Role == identity.RoleVolunteer && caller.UserID != volunteerID {
		cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "cannot update another volunteer's location", nil)
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Home == nil && req.Address == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "home or address is required", nil)
		return
	}

	v, err := s.repo.Get(ctx, volunteerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if req.Home != nil {
		v.Home = req.Home
	}
	if req.Address != "" {
		v.Address = req.Address
	}
	s.resolveLocation(r, v)
	v.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, v); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, v)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Status != StatusActive && req.Status != StatusInactive {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "status must be active or inactive", nil)
		return
	}

	v, err := s.repo.Get(ctx, chi.URLParam(r, "volunteerID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	v.Status = req.Status
	v.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, v); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, v)
}

// resolveLocation fills the missing half of the home/address pair via the
// geocoder. Best effort: failures keep whatever the caller supplied.
func (s *Server) resolveLocation(r *http.Request, v *Volunteer) {
	ctx := r.Context()
	switch {
	case v.Home == nil && v.Address != "":
		result, err := s.geocoder.ForwardGeocode(ctx, v.Address)
		if err != nil {
			slog.WarnContext(ctx, "forward geocode failed", "volunteer_id", v.ID, "error", err)
			return
		}
		if result != nil {
			v.Home = &result.Point
			if result.FormattedAddress != "" {
				v.Address = result.FormattedAddress
			}
		}
	case v.Home != nil && v.Address == "":
		addr, err := s.geocoder.ReverseGeocode(ctx, *v.Home)
		if err != nil {
			slog.WarnContext(ctx, "reverse geocode failed", "volunteer_id", v.ID, "error", err)
			return
		}
		v.Address = addr
	}
}
