package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodbridge/server/internal/assignment"
	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/internal/dashboard"
	"github.com/foodbridge/server/internal/donation"
	donationrepo "github.com/foodbridge/server/internal/donation/repositoryimpl"
	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/geocode"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/metrics"
	metricsrepo "github.com/foodbridge/server/internal/metrics/repositoryimpl"
	"github.com/foodbridge/server/internal/organization"
	"github.com/foodbridge/server/internal/pushsubscription"
	pushsubrepo "github.com/foodbridge/server/internal/pushsubscription/repositoryimpl"
	taskrepo "github.com/foodbridge/server/internal/task/repositoryimpl"
	"github.com/foodbridge/server/internal/volunteer"
	volunteerrepo "github.com/foodbridge/server/internal/volunteer/repositoryimpl"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/clog"
	"github.com/foodbridge/server/pkg/storage"
)

type apiHarness struct {
	router   http.Handler
	resolver *identity.JWTResolver
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewLocalStorage(filepath.Join(dir, "data"))
	require.NoError(t, err)

	catalogPath := filepath.Join(dir, "organizations.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`organizations:
  - id: org-1
    name: Shelter
    address: 1 Shelter Way
    location:
      longitude: -0.12
      latitude: 51.5
`), 0o644))
	catalog, err := organization.NewCatalog(catalogPath)
	require.NoError(t, err)

	donationRepo := donationrepo.NewYAMLRepository(store)
	taskRepo := taskrepo.NewYAMLRepository(store)
	volunteerRepo := volunteerrepo.NewYAMLRepository(store)
	ledger := metrics.NewLedger(metricsrepo.NewYAMLRepository(store))
	bus := eventbus.New()
	geocoder := geocode.Noop{}
	resolver := identity.NewJWTResolver(&config.AuthEnv{JWTSecret: "test-secret"})

	engine := assignment.NewEngine(donationRepo, taskRepo, volunteerRepo, catalog, ledger, bus)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
			identity.Middleware(resolver),
		)
		donation.NewServer(donationRepo, ledger, geocoder, bus).RegisterRoutes(r)
		assignment.NewServer(engine, taskRepo).RegisterRoutes(r)
		volunteer.NewServer(volunteerRepo, geocoder).RegisterRoutes(r)
		dashboard.NewServer(dashboard.NewService(donationRepo, taskRepo), ledger).RegisterRoutes(r)
		geocode.NewServer(geocoder).RegisterRoutes(r)
		pushsubscription.NewServer(pushsubrepo.NewYAMLRepository(store)).RegisterRoutes(r)
	})

	return &apiHarness{router: r, resolver: resolver}
}

func (h *apiHarness) token(t *testing.T, userID string, role identity.Role) string {
	t.Helper()
	token, err := h.resolver.Mint(identity.Caller{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestAPIRequiresToken(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/api/donations/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRoleEnforcement(t *testing.T) {
	h := newAPIHarness(t)
	volToken := h.token(t, "vol-1", identity.RoleVolunteer)

	rec := h.do(t, http.MethodGet, "/api/donations/pending", volToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostAndAssignOverHTTP(t *testing.T) {
	h := newAPIHarness(t)

	donorToken := h.token(t, "donor-1", identity.RoleDonor)
	adminToken := h.token(t, "admin-1", identity.RoleAdmin)
	volToken := h.token(t, "vol-1", identity.RoleVolunteer)

	// Admin registers the volunteer.
	rec := h.do(t, http.MethodPost, "/api/volunteers", adminToken, map[string]any{
		"name": "Pat",
		"home": map[string]float64{"longitude": -0.1, "latitude": 51.5},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var vol struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vol))

	// Registered volunteer ids are minted by the server; reissue the token
	// for the real id so ownership checks line up.
	volToken = h.token(t, vol.ID, identity.RoleVolunteer)

	// Donor posts a donation.
	rec = h.do(t, http.MethodPost, "/api/donations", donorToken, map[string]any{
		"donorName": "Corner Bakery",
		"itemType":  "bread",
		"quantity":  "10 lbs",
		"pickup":    map[string]float64{"longitude": -0.1, "latitude": 51.51},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var posted struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posted))
	assert.Equal(t, "pendingAssignment", posted.Status)

	// Admin sees it in the pending queue.
	rec = h.do(t, http.MethodGet, "/api/donations/pending", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, posted.ID, pending[0].ID)

	// Admin assigns collection.
	rec = h.do(t, http.MethodPost, "/api/donations/"+posted.ID+"/collection-task", adminToken,
		map[string]string{"volunteerId": vol.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var assigned struct {
		Task struct {
			ID string `json:"id"`
		} `json:"task"`
		Donation struct {
			Status string `json:"status"`
		} `json:"donation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))
	assert.Equal(t, "assignedForCollection", assigned.Donation.Status)

	// Double assignment fails with 412 and no new task.
	rec = h.do(t, http.MethodPost, "/api/donations/"+posted.ID+"/collection-task", adminToken,
		map[string]string{"volunteerId": vol.ID})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Volunteer completes the pickup.
	rec = h.do(t, http.MethodPost, "/api/tasks/"+assigned.Task.ID+"/status", volToken,
		map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Issue report on a completed task is rejected.
	rec = h.do(t, http.MethodPost, "/api/tasks/"+assigned.Task.ID+"/issue", volToken,
		map[string]string{"notes": "too late"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	// Dashboard reflects the completed pickup.
	rec = h.do(t, http.MethodGet, "/api/metrics/dashboard", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum struct {
		TotalDonations int `json:"totalDonations"`
		TasksCompleted int `json:"tasksCompleted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 1, sum.TotalDonations)
	assert.Equal(t, 1, sum.TasksCompleted)
}

func TestIssueLockReturnsLockedStatus(t *testing.T) {
	h := newAPIHarness(t)
	adminToken := h.token(t, "admin-1", identity.RoleAdmin)
	donorToken := h.token(t, "donor-1", identity.RoleDonor)

	rec := h.do(t, http.MethodPost, "/api/volunteers", adminToken, map[string]any{"name": "Pat"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var vol struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vol))
	volToken := h.token(t, vol.ID, identity.RoleVolunteer)

	rec = h.do(t, http.MethodPost, "/api/donations", donorToken, map[string]any{
		"donorName": "Bakery",
		"itemType":  "bread",
		"quantity":  "1 box",
		"pickup":    map[string]float64{"longitude": -0.1, "latitude": 51.51},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var posted struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posted))

	rec = h.do(t, http.MethodPost, "/api/donations/"+posted.ID+"/collection-task", adminToken,
		map[string]string{"volunteerId": vol.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	var assigned struct {
		Task struct {
			ID string `json:"id"`
		} `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &assigned))

	rec = h.do(t, http.MethodPost, "/api/tasks/"+assigned.Task.ID+"/issue", volToken,
		map[string]string{"notes": "address is wrong"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Status updates on a flagged task come back 423 Locked.
	rec = h.do(t, http.MethodPost, "/api/tasks/"+assigned.Task.ID+"/status", volToken,
		map[string]string{"status": "en_route"})
	assert.Equal(t, http.StatusLocked, rec.Code)
}
