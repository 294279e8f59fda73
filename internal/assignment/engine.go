package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/metrics"
	"github.com/foodbridge/server/internal/organization"
	"github.com/foodbridge/server/internal/task"
	"github.com/foodbridge/server/internal/volunteer"
	"github.com/foodbridge/server/pkg/cerr"
)

// OrganizationResolver resolves a distribution-center id to its record.
// Backed by the fsnotify-watched catalog in production.
type OrganizationResolver interface {
	Get(id string) (*organization.Organization, error)
}

// Engine owns task creation, reassignment, volunteer status updates and
// issue escalation. It is the only component that advances Donation.Status,
// always through the repository's conditional transition.
type Engine struct {
	donations  donation.Repository
	tasks      task.Repository
	volunteers volunteer.Repository
	orgs       OrganizationResolver
	ledger     *metrics.Ledger
	bus        *eventbus.Bus
}

func NewEngine(
	donations donation.Repository,
	tasks task.Repository,
	volunteers volunteer.Repository,
	orgs OrganizationResolver,
	ledger *metrics.Ledger,
	bus *eventbus.Bus,
) *Engine {
	return &Engine{
		donations:  donations,
		tasks:      tasks,
		volunteers: volunteers,
		orgs:       orgs,
		ledger:     ledger,
		bus:        bus,
	}
}

// AssignCollection creates the pickup task for a donation and advances the
// donation to assignedForCollection. The conditional status transition is
// the at-most-once gate: of two concurrent admins, exactly one wins.
func (e *Engine) AssignCollection(ctx context.Context, donationID, volunteerID string) (*donation.Donation, *task.Task, error) {
	if err := e.requireActiveVolunteer(ctx, volunteerID); err != nil {
		return nil, nil, err
	}
	prior, err := e.donations.Get(ctx, donationID)
	if err != nil {
		return nil, nil, err
	}

	d, err := e.donations.Transition(ctx, donationID,
		donation.StatusPendingAssignment, donation.StatusAssignedForCollection, nil)
	if err != nil {
		return nil, nil, err
	}

	t := &task.Task{
		ID:          ulid.Make().String(),
		DonationID:  d.ID,
		VolunteerID: volunteerID,
		Type:        task.TypeCollection,
		Status:      task.StatusAssigned,
		Location:    d.Pickup,
		Address:     d.PickupAddress,
		AssignedAt:  time.Now(),
	}
	if err := e.tasks.Create(ctx, t); err != nil {
		// The donation advanced but the task never existed; restore the
		// pre-transition record so the pair stays consistent.
		if putErr := e.donations.Put(ctx, prior); putErr != nil {
			slog.ErrorContext(ctx, "failed to roll back donation after task create failure",
				"donation_id", donationID, "error", putErr)
		}
		return nil, nil, err
	}

	e.recordAssigned(ctx, volunteerID)
	e.bus.PublishNew(eventbus.EventTaskAssigned, t.ID, map[string]string{
		"donation_id":  d.ID,
		"volunteer_id": volunteerID,
		"task_type":    string(t.Type),
	})
	return d, t, nil
}

// AssignDistribution creates the delivery task toward a distribution center
// and advances the donation to assignedForDistribution, snapshotting the
// dropoff onto the donation itself.
func (e *Engine) AssignDistribution(ctx context.Context, donationID, volunteerID, locationID string) (*donation.Donation, *task.Task, error) {
	if err := e.requireActiveVolunteer(ctx, volunteerID); err != nil {
		return nil, nil, err
	}
	org, err := e.orgs.Get(locationID)
	if err != nil {
		return nil, nil, err
	}
	prior, err := e.donations.Get(ctx, donationID)
	if err != nil {
		return nil, nil, err
	}

	d, err := e.donations.Transition(ctx, donationID,
		donation.StatusCollected, donation.StatusAssignedForDistribution,
		func(d *donation.Donation) {
			dropoff := org.Location
			d.Dropoff = &dropoff
			d.DropoffAddress = org.Address
		})
	if err != nil {
		return nil, nil, err
	}

	t := &task.Task{
		ID:          ulid.Make().String(),
		DonationID:  d.ID,
		VolunteerID: volunteerID,
		Type:        task.TypeDistribution,
		Status:      task.StatusAssigned,
		Location:    org.Location,
		Address:     org.Address,
		AssignedAt:  time.Now(),
	}
	if err := e.tasks.Create(ctx, t); err != nil {
		if putErr := e.donations.Put(ctx, prior); putErr != nil {
			slog.ErrorContext(ctx, "failed to roll back donation after task create failure",
				"donation_id", donationID, "error", putErr)
		}
		return nil, nil, err
	}

	e.recordAssigned(ctx, volunteerID)
	e.bus.PublishNew(eventbus.EventTaskAssigned, t.ID, map[string]string{
		"donation_id":  d.ID,
		"volunteer_id": volunteerID,
		"task_type":    string(t.Type),
	})
	return d, t, nil
}

// UpdateStatus applies a volunteer-driven status change. Completion also
// drives the paired donation transition; those two writes succeed or fail
// together (the task write is compensated when the donation write fails).
func (e *Engine) UpdateStatus(ctx context.Context, volunteerID, taskID string, newStatus task.Status) (*task.Task, error) {
	switch newStatus {
	case task.StatusEnRoute, task.StatusCompleted, task.StatusCancelled, task.StatusFailed:
	default:
		return nil, cerr.NewError(cerr.InvalidArgument,
			fmt.Sprintf("status %q cannot be set by a volunteer", newStatus), nil)
	}

	var prev task.Task
	now := time.Now()
	t, err := e.tasks.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.VolunteerID != volunteerID {
			return cerr.NewError(cerr.FailedPrecondition, "task belongs to another volunteer", nil)
		}
		if t.IssueReported || t.Status == task.StatusPendingReview {
			return cerr.NewError(cerr.Locked, "task is locked pending issue review", nil)
		}
		if !task.CanVolunteerTransition(t.Status, newStatus) {
			return cerr.NewError(cerr.FailedPrecondition,
				fmt.Sprintf("task transition %q to %q is not allowed", t.Status, newStatus), nil)
		}
		prev = *t
		t.Status = newStatus
		switch newStatus {
		case task.StatusEnRoute:
			t.StartedAt = &now
		case task.StatusCompleted:
			t.CompletedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newStatus == task.StatusCompleted {
		if err := e.completeDonationPhase(ctx, t, now); err != nil {
			// Restore the task so the donation/task pair never ends up in
			// mismatched phases.
			if putErr := e.tasks.Put(ctx, &prev); putErr != nil {
				slog.ErrorContext(ctx, "failed to roll back task after donation transition failure",
					"task_id", t.ID, "error", putErr)
			}
			return nil, err
		}
		e.recordCompleted(ctx, t)
	}

	e.bus.PublishNew(eventbus.EventTaskStatusChanged, t.ID, map[string]string{
		"donation_id":  t.DonationID,
		"volunteer_id": t.VolunteerID,
		"new_status":   string(newStatus),
	})
	return t, nil
}

func (e *Engine) completeDonationPhase(ctx context.Context, t *task.Task, completedAt time.Time) error {
	switch t.Type {
	case task.TypeCollection:
		_, err := e.donations.Transition(ctx, t.DonationID,
			donation.StatusAssignedForCollection, donation.StatusCollected,
			func(d *donation.Donation) {
				d.CollectedAt = &completedAt
				d.CollectedBy = t.VolunteerID
			})
		return err
	case task.TypeDistribution:
		_, err := e.donations.Transition(ctx, t.DonationID,
			donation.StatusAssignedForDistribution, donation.StatusDelivered,
			func(d *donation.Donation) {
				d.DeliveredAt = &completedAt
				d.DistributedBy = t.VolunteerID
			})
		if err == nil {
			e.bus.PublishNew(eventbus.EventDonationDelivered, t.DonationID, map[string]string{
				"volunteer_id": t.VolunteerID,
			})
		}
		return err
	default:
		return cerr.NewError(cerr.Internal, "server error",
			fmt.Errorf("task %s has unknown type %q", t.ID, t.Type))
	}
}

// Reassign hands a task to a new volunteer and restarts it at assigned.
// It is also the only way out of issue review: the flag and notes are
// cleared here. Donation status and metrics are untouched, reassignment
// implies no new progress.
func (e *Engine) Reassign(ctx context.Context, taskID, newVolunteerID string) (*task.Task, error) {
	if err := e.requireActiveVolunteer(ctx, newVolunteerID); err != nil {
		return nil, err
	}
	t, err := e.tasks.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.Status.Terminal() {
			return cerr.NewError(cerr.FailedPrecondition,
				fmt.Sprintf("cannot reassign a %s task", t.Status), nil)
		}
		t.VolunteerID = newVolunteerID
		t.Status = task.StatusAssigned
		t.IssueReported = false
		t.IssueNotes = ""
		t.AssignedAt = time.Now()
		t.StartedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.EventTaskReassigned, t.ID, map[string]string{
		"donation_id":  t.DonationID,
		"volunteer_id": newVolunteerID,
	})
	return t, nil
}

// ReportIssue flags a task for admin review. One-way gate: further status
// updates fail with Locked until an admin reassigns.
func (e *Engine) ReportIssue(ctx context.Context, volunteerID, taskID, notes string) (*task.Task, error) {
	if notes == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "issue notes are required", nil)
	}
	t, err := e.tasks.Mutate(ctx, taskID, func(t *task.Task) error {
		if t.VolunteerID != volunteerID {
			return cerr.NewError(cerr.FailedPrecondition, "task belongs to another volunteer", nil)
		}
		if t.Status.Terminal() {
			return cerr.NewError(cerr.FailedPrecondition,
				fmt.Sprintf("cannot report an issue on a %s task", t.Status), nil)
		}
		if t.IssueReported {
			return cerr.NewError(cerr.Locked, "task is already pending issue review", nil)
		}
		t.IssueReported = true
		t.IssueNotes = notes
		t.Status = task.StatusPendingReview
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.bus.PublishNew(eventbus.EventTaskIssueReported, t.ID, map[string]string{
		"donation_id":  t.DonationID,
		"volunteer_id": volunteerID,
	})
	return t, nil
}

func (e *Engine) requireActiveVolunteer(ctx context.Context, volunteerID string) error {
	v, err := e.volunteers.Get(ctx, volunteerID)
	if err != nil {
		return err
	}
	if !v.Active() {
		return cerr.NewError(cerr.FailedPrecondition, "volunteer is not active", nil)
	}
	return nil
}

// Metrics failures never propagate: the lifecycle write already happened and
// stays the source of truth.
func (e *Engine) recordAssigned(ctx context.Context, volunteerID string) {
	if err := e.ledger.RecordTaskAssigned(ctx, volunteerID); err != nil {
		slog.ErrorContext(ctx, "failed to record task assignment metric",
			"volunteer_id", volunteerID, "error", err)
	}
}

func (e *Engine) recordCompleted(ctx context.Context, t *task.Task) {
	if err := e.ledger.RecordTaskCompleted(ctx, t.VolunteerID, t.Type == task.TypeCollection); err != nil {
		slog.ErrorContext(ctx, "failed to record task completion metric",
			"volunteer_id", t.VolunteerID, "error", err)
	}
}
