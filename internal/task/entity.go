package task

import (
	"time"

	"github.com/foodbridge/server/pkg/geo"
)

// Type distinguishes the pickup phase from the delivery phase.
type Type string

const (
	TypeCollection   Type = "collection"
	TypeDistribution Type = "distribution"
)

func (t Type) Valid() bool {
	return t == TypeCollection || t == TypeDistribution
}

// Status is the task lifecycle state. Volunteers only ever move a task
// through assigned → en_route → completed, or abandon it as cancelled/failed.
// pending_review overlays the normal flow while an issue report is open and
// is cleared only by admin reassignment.
type Status string

const (
	StatusPending       Status = "pending"
	StatusAssigned      Status = "assigned"
	StatusEnRoute       Status = "en_route"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
	StatusFailed        Status = "failed"
	StatusPendingReview Status = "pending_review"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusEnRoute, StatusCompleted,
		StatusCancelled, StatusFailed, StatusPendingReview:
		return true
	}
	return false
}

// Terminal reports whether the task has finished for good. A terminal task
// never changes again, not even through reassignment.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// volunteerTransitions enumerates the edges a volunteer may drive. Issue
// locking and ownership are checked separately by the assignment engine.
var volunteerTransitions = map[Status][]Status{
	StatusAssigned: {StatusEnRoute, StatusCompleted, StatusCancelled, StatusFailed},
	StatusEnRoute:  {StatusCompleted, StatusCancelled, StatusFailed},
}

// CanVolunteerTransition reports whether a volunteer may move a task from
// `from` to `to`.
func CanVolunteerTransition(from, to Status) bool {
	for _, next := range volunteerTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Task is one unit of volunteer work tied to a single donation. Location and
// Address are snapshots taken at assignment time; they do not follow later
// edits to the donation or organization records.
type Task struct {
	ID            string     `json:"id" yaml:"id"`
	DonationID    string     `json:"donationId" yaml:"donation_id"`
	VolunteerID   string     `json:"volunteerId" yaml:"volunteer_id"`
	Type          Type       `json:"type" yaml:"type"`
	Status        Status     `json:"status" yaml:"status"`
	Location      geo.Point  `json:"location" yaml:"location"`
	Address       string     `json:"address" yaml:"address"`
	Notes         string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	IssueReported bool       `json:"issueReported" yaml:"issue_reported"`
	IssueNotes    string     `json:"issueNotes,omitempty" yaml:"issue_notes,omitempty"`
	AssignedAt    time.Time  `json:"assignedAt" yaml:"assigned_at"`
	StartedAt     *time.Time `json:"startedAt,omitempty" yaml:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
}
