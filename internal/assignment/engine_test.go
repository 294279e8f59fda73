package assignment

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodbridge/server/internal/donation"
	donationimpl "github.com/foodbridge/server/internal/donation/repositoryimpl"
	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/metrics"
	metricsimpl "github.com/foodbridge/server/internal/metrics/repositoryimpl"
	"github.com/foodbridge/server/internal/organization"
	"github.com/foodbridge/server/internal/task"
	taskimpl "github.com/foodbridge/server/internal/task/repositoryimpl"
	"github.com/foodbridge/server/internal/volunteer"
	volunteerimpl "github.com/foodbridge/server/internal/volunteer/repositoryimpl"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/geo"
	"github.com/foodbridge/server/pkg/storage"
)

type testEnv struct {
	engine     *Engine
	donations  donation.Repository
	tasks      task.Repository
	volunteers volunteer.Repository
	ledger     *metrics.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewLocalStorage(filepath.Join(dir, "data"))
	require.NoError(t, err)

	catalogPath := filepath.Join(dir, "organizations.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`organizations:
  - id: org-shelter
    name: Downtown Shelter
    address: 1 Shelter Way
    location:
      longitude: -0.12
      latitude: 51.5
`), 0o644))
	catalog, err := organization.NewCatalog(catalogPath)
	require.NoError(t, err)

	donations := donationimpl.NewYAMLRepository(store)
	tasks := taskimpl.NewYAMLRepository(store)
	volunteers := volunteerimpl.NewYAMLRepository(store)
	ledger := metrics.NewLedger(metricsimpl.NewYAMLRepository(store))

	return &testEnv{
		engine:     NewEngine(donations, tasks, volunteers, catalog, ledger, eventbus.New()),
		donations:  donations,
		tasks:      tasks,
		volunteers: volunteers,
		ledger:     ledger,
	}
}

func (e *testEnv) addVolunteer(t *testing.T, status volunteer.Status) string {
	t.Helper()
	v := &volunteer.Volunteer{
		ID:        ulid.Make().String(),
		Name:      "Test Volunteer",
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, e.volunteers.Create(context.Background(), v))
	return v.ID
}

func (e *testEnv) addDonation(t *testing.T, quantity string) string {
	t.Helper()
	d := &donation.Donation{
		ID:            ulid.Make().String(),
		DonorID:       "donor-1",
		DonorName:     "Corner Bakery",
		ItemType:      "bread",
		Quantity:      quantity,
		Status:        donation.StatusPendingAssignment,
		Pickup:        geo.Point{Longitude: -0.1, Latitude: 51.51},
		PickupAddress: "2 Bakery Lane",
		AvailableFrom: time.Now(),
		PostedAt:      time.Now(),
	}
	require.NoError(t, e.donations.Create(context.Background(), d))
	return d.ID
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "10 lbs")

	d, col, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.NoError(t, err)
	assert.Equal(t, donation.StatusAssignedForCollection, d.Status)
	assert.Equal(t, task.TypeCollection, col.Type)
	assert.Equal(t, task.StatusAssigned, col.Status)
	assert.Equal(t, "2 Bakery Lane", col.Address)

	got, err := env.engine.UpdateStatus(ctx, vol, col.ID, task.StatusEnRoute)
	require.NoError(t, err)
	assert.Equal(t, task.StatusEnRoute, got.Status)
	require.NotNil(t, got.StartedAt)

	got, err = env.engine.UpdateStatus(ctx, vol, col.ID, task.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	d, err = env.donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Equal(t, donation.StatusCollected, d.Status)
	assert.Equal(t, vol, d.CollectedBy)
	require.NotNil(t, d.CollectedAt)

	d, dist, err := env.engine.AssignDistribution(ctx, donationID, vol, "org-shelter")
	require.NoError(t, err)
	assert.Equal(t, donation.StatusAssignedForDistribution, d.Status)
	assert.Equal(t, "1 Shelter Way", d.DropoffAddress)
	assert.Equal(t, "1 Shelter Way", dist.Address)

	_, err = env.engine.UpdateStatus(ctx, vol, dist.ID, task.StatusCompleted)
	require.NoError(t, err)

	d, err = env.donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Equal(t, donation.StatusDelivered, d.Status)
	assert.Equal(t, vol, d.DistributedBy)

	m, err := env.ledger.Get(ctx, vol)
	require.NoError(t, err)
	assert.Equal(t, 2, m.TasksAssigned)
	assert.Equal(t, 2, m.TasksCompleted)
	assert.Equal(t, 1, m.DonationsCollected)
	assert.Equal(t, 1, m.DonationsDelivered)
}

func TestAssignCollectionDoubleAssign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol1 := env.addVolunteer(t, volunteer.StatusActive)
	vol2 := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "3 boxes")

	_, _, err := env.engine.AssignCollection(ctx, donationID, vol1)
	require.NoError(t, err)

	_, _, err = env.engine.AssignCollection(ctx, donationID, vol2)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	// The losing assignment must not leave a second task behind.
	tasks, err := env.tasks.List(ctx, "", donationID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, vol1, tasks[0].VolunteerID)
}

func TestAssignCollectionInactiveVolunteer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusInactive)
	donationID := env.addDonation(t, "5 crates")

	_, _, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	d, err := env.donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Equal(t, donation.StatusPendingAssignment, d.Status)
}

func TestAssignDistributionRequiresCollected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "2 bags")

	_, _, err := env.engine.AssignDistribution(ctx, donationID, vol, "org-shelter")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestAssignDistributionUnknownOrganization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "2 bags")

	_, _, err := env.engine.AssignDistribution(ctx, donationID, vol, "org-missing")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestUpdateStatusOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.addVolunteer(t, volunteer.StatusActive)
	other := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "1 pallet")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, owner)
	require.NoError(t, err)

	_, err = env.engine.UpdateStatus(ctx, other, tk.ID, task.StatusEnRoute)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "1 pallet")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.NoError(t, err)

	_, err = env.engine.UpdateStatus(ctx, vol, tk.ID, task.StatusCompleted)
	require.NoError(t, err)

	_, err = env.engine.UpdateStatus(ctx, vol, tk.ID, task.StatusEnRoute)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestIssueLocksTaskUntilReassignment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol1 := env.addVolunteer(t, volunteer.StatusActive)
	vol2 := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "4 trays")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol1)
	require.NoError(t, err)

	flagged, err := env.engine.ReportIssue(ctx, vol1, tk.ID, "van broke down")
	require.NoError(t, err)
	assert.Equal(t, task.StatusPendingReview, flagged.Status)
	assert.True(t, flagged.IssueReported)

	_, err = env.engine.UpdateStatus(ctx, vol1, tk.ID, task.StatusEnRoute)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Locked))

	reports, err := env.engine.ListIssues(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, tk.ID, reports[0].Task.ID)
	assert.Equal(t, "Corner Bakery", reports[0].Donation.DonorName)

	reassigned, err := env.engine.Reassign(ctx, tk.ID, vol2)
	require.NoError(t, err)
	assert.Equal(t, vol2, reassigned.VolunteerID)
	assert.Equal(t, task.StatusAssigned, reassigned.Status)
	assert.False(t, reassigned.IssueReported)
	assert.Empty(t, reassigned.IssueNotes)
	assert.Nil(t, reassigned.StartedAt)

	// The new volunteer can now drive the task to completion.
	_, err = env.engine.UpdateStatus(ctx, vol2, tk.ID, task.StatusCompleted)
	require.NoError(t, err)

	d, err := env.donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Equal(t, donation.StatusCollected, d.Status)
	assert.Equal(t, vol2, d.CollectedBy)
}

func TestReportIssueValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "6 sacks")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.NoError(t, err)

	_, err = env.engine.ReportIssue(ctx, vol, tk.ID, "")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = env.engine.ReportIssue(ctx, vol, tk.ID, "first issue")
	require.NoError(t, err)

	_, err = env.engine.ReportIssue(ctx, vol, tk.ID, "second issue")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Locked))
}

func TestReportIssueOnTerminalTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "6 sacks")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.NoError(t, err)
	_, err = env.engine.UpdateStatus(ctx, vol, tk.ID, task.StatusCancelled)
	require.NoError(t, err)

	_, err = env.engine.ReportIssue(ctx, vol, tk.ID, "too late")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestReassignTerminalTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol1 := env.addVolunteer(t, volunteer.StatusActive)
	vol2 := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "6 sacks")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol1)
	require.NoError(t, err)
	_, err = env.engine.UpdateStatus(ctx, vol1, tk.ID, task.StatusFailed)
	require.NoError(t, err)

	_, err = env.engine.Reassign(ctx, tk.ID, vol2)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestCancelledTaskLeavesDonationPhase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "6 sacks")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.NoError(t, err)
	_, err = env.engine.UpdateStatus(ctx, vol, tk.ID, task.StatusCancelled)
	require.NoError(t, err)

	// Abandonment never winds the donation forward or back; recovery is an
	// admin decision.
	d, err := env.donations.Get(ctx, donationID)
	require.NoError(t, err)
	assert.Equal(t, donation.StatusAssignedForCollection, d.Status)

	m, err := env.ledger.Get(ctx, vol)
	require.NoError(t, err)
	assert.Equal(t, 0, m.TasksCompleted)
}

func TestOrphanedTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	vol := env.addVolunteer(t, volunteer.StatusActive)
	donationID := env.addDonation(t, "6 sacks")

	_, tk, err := env.engine.AssignCollection(ctx, donationID, vol)
	require.NoError(t, err)

	orphan := &task.Task{
		ID:          ulid.Make().String(),
		DonationID:  "gone",
		VolunteerID: vol,
		Type:        task.TypeCollection,
		Status:      task.StatusAssigned,
		AssignedAt:  time.Now(),
	}
	require.NoError(t, env.tasks.Create(ctx, orphan))

	orphans, err := env.engine.OrphanedTasks(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)
	assert.NotEqual(t, tk.ID, orphans[0].ID)
}
