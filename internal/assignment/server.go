package assignment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/task"
	"github.com/foodbridge/server/pkg/cerr"
)

// Server exposes task assignment and the volunteer status flow over HTTP.
type Server struct {
	engine *Engine
	tasks  task.Repository
}

func NewServer(engine *Engine, tasks task.Repository) *Server {
	return &Server{engine: engine, tasks: tasks}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/donations/{donationID}/collection-task", s.assignCollection)
	r.Post("/donations/{donationID}/distribution-task", s.assignDistribution)
	r.Get("/tasks", s.listTasks)
	r.Get("/tasks/issues", s.listIssues)
	r.Get("/tasks/orphans", s.listOrphans)
	r.Get("/tasks/{taskID}", s.getTask)
	r.Post("/tasks/{taskID}/status", s.updateStatus)
	r.Post("/tasks/{taskID}/issue", s.reportIssue)
	r.Post("/tasks/{taskID}/reassign", s.reassign)
}

type assignResponse struct {
	Donation *donation.Donation `json:"donation"`
	Task     *task.Task         `json:"task"`
}

func (s *Server) assignCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		VolunteerID string `json:"volunteerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.VolunteerID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "volunteerId is required", nil)
		return
	}

	d, t, err := s.engine.AssignCollection(ctx, chi.URLParam(r, "donationID"), req.VolunteerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, assignResponse{Donation: d, Task: t})
}

func (s *Server) assignDistribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		VolunteerID string `json:"volunteerId"`
		LocationID  string `json:"locationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.VolunteerID == "" || req.LocationID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "volunteerId and locationId are required", nil)
		return
	}

	d, t, err := s.engine.AssignDistribution(ctx, chi.URLParam(r, "donationID"), req.VolunteerID, req.LocationID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseStatus(ctx, http.StatusCreated, assignResponse{Donation: d, Task: t})
}

// listTasks serves both the volunteer queue (own tasks) and the admin view
// (any filter). Volunteers are pinned to their own id.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.RequireRole(ctx, identity.RoleAdmin, identity.RoleVolunteer)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	volunteerID := r.URL.Query().Get("volunteerId")
	donationID := r.URL.Query().Get("donationId")
	if caller.Role == identity.RoleVolunteer {
		volunteerID = caller.UserID
	}

	tasks, err := s.tasks.List(ctx, volunteerID, donationID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.RequireRole(ctx, identity.RoleAdmin, identity.RoleVolunteer)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t, err := s.tasks.Get(ctx, chi.URLParam(r, "taskID"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if caller.Role == identity.RoleVolunteer && t.VolunteerID != caller.UserID {
		cerr.SetNewJSONError(ctx, cerr.PermissionDenied, "task belongs to another volunteer", nil)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.RequireRole(ctx, identity.RoleVolunteer)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		Status task.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := s.engine.UpdateStatus(ctx, caller.UserID, chi.URLParam(r, "taskID"), req.Status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) reportIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, err := identity.RequireRole(ctx, identity.RoleVolunteer)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	t, err := s.engine.ReportIssue(ctx, caller.UserID, chi.URLParam(r, "taskID"), req.Notes)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) reassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	var req struct {
		VolunteerID string `json:"volunteerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.VolunteerID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "volunteerId is required", nil)
		return
	}

	t, err := s.engine.Reassign(ctx, chi.URLParam(r, "taskID"), req.VolunteerID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	reports, err := s.engine.ListIssues(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, reports)
}

func (s *Server) listOrphans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := identity.RequireRole(ctx, identity.RoleAdmin); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	orphans, err := s.engine.OrphanedTasks(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, orphans)
}
