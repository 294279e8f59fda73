package donation

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/geocode"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/metrics"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/geo"
)

// Server exposes donation intake and the assignment queue over HTTP.
type Server struct {
	repo     Repository
	ledger   *metrics.Ledger
	geocoder geocode.Geocoder
	bus      *eventbus.Bus
}

func NewServer(repo Repository, ledger *metrics.Ledger, geocoder geocode.Geocoder, bus *eventbus.Bus) *Server {
	return &Server{repo: repo, ledger: ledger, geocoder: geocoder, bus: bus}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/donations", s.post)
	r.Get("/donations", s.list)
	r.Get("/donations/pending", s.listPending)
	r.Get("/donations/{donationID}", s.get)
}

type postRequest struct {
	DonorName     string     `json:"donorName"`
	ItemType      string     `json:"itemType"`
	Quantity      string     `json:"quantity"`
	Notes         string     `json:"notes"`
	Pickup        *geo.Point `json:"pickup"`
	PickupAddress string     `json:"pickupAddress"`
	AvailableFrom *time.Time `json:"availableFrom"`
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.RequireRole(ctx, identity.RoleDonor, identity.RoleAdmin)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.DonorName == "" || req.ItemType == "" || req.Quantity == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "donorName, itemType and quantity are required", nil)
		return
	}
	if req.Pickup == nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "pickup location is required", nil)
		return
	}

	now := time.Now()
	availableFrom := now
	if req.AvailableFrom != nil {
		availableFrom = *req.AvailableFrom
	}

	d := &Donation{
		ID:            ulid.Make().String(),
		DonorID:       caller.UserID,
		DonorName:     req.DonorName,
		ItemType:      req.ItemType,
		Quantity:      req.Quantity,
		Notes:         req.Notes,
		Status:        StatusPendingAssignment,
		Pickup:        *req.Pickup,
		PickupAddress: req.PickupAddress,
		AvailableFrom: availableFrom,
		PostedAt:      now,
	}

	// Fill a missing address from the coordinates when a geocoder is
	// configured. Failures leave the address empty; posting never blocks on
	// the mapping provider.
	if d.PickupAddress == "" {
		addr, err := s.geocoder.ReverseGeocode(ctx, d.Pickup)
		if err != nil {
			slog.WarnContext(ctx, "reverse geocode failed", "donation_id", d.ID, "error", err)
		} else {
			d.PickupAddress = addr
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	if err := s.ledger.RecordDonationPosted(ctx, d.DonorID, d.Quantity); err != nil {
		slog.ErrorContext(ctx, "failed to record donation metric",
			"donation_id", d.ID, "donor_id", d.DonorID, "error", err)
	}
	s.bus.PublishNew(eventbus.EventDonationCreated, d.ID, map[string]string{
		"donor_id": d.DonorID,
	})

	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, d)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	status := Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "unknown donation status", nil)
		return
	}
	donations, err := s.repo.List(ctx, status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, donations)
}

// listPending is the assignment queue: unassigned donations ordered by
// availability so the soonest pickup surfaces first.
func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	donations, err := s.repo.List(ctx, StatusPendingAssignment)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	sort.SliceStable(donations, func(i, j int) bool {
		return donations[i].AvailableFrom.Before(donations[j].AvailableFrom)
	})
	cerr.SetJSONResponse(ctx, donations)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.CallerFromContext(ctx); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	d, err := s.repo.Get(ctx, chi.URLParam(r, "donationID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, d)
}
