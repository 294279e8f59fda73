package assignment

import (
	"context"

	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/internal/task"
	"github.com/foodbridge/server/pkg/cerr"
)

// DonationSummary is the slice of donation state an admin needs next to a
// flagged task. Empty when the donation record is gone.
type DonationSummary struct {
	ID        string          `json:"id,omitempty"`
	DonorName string          `json:"donorName,omitempty"`
	ItemType  string          `json:"itemType,omitempty"`
	Quantity  string          `json:"quantity,omitempty"`
	Status    donation.Status `json:"status,omitempty"`
}

// IssueReport pairs a flagged task with its donation context for review.
type IssueReport struct {
	Task     *task.Task      `json:"task"`
	Donation DonationSummary `json:"donation"`
}

// ListIssues returns all tasks awaiting issue review, newest first, each
// joined with a summary of its donation. A missing donation does not hide
// the report; the summary is just left empty.
func (e *Engine) ListIssues(ctx context.Context) ([]*IssueReport, error) {
	tasks, err := e.tasks.ListIssues(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*IssueReport, 0, len(tasks))
	for _, t := range tasks {
		report := &IssueReport{Task: t}
		d, err := e.donations.Get(ctx, t.DonationID)
		switch {
		case err == nil:
			report.Donation = DonationSummary{
				ID:        d.ID,
				DonorName: d.DonorName,
				ItemType:  d.ItemType,
				Quantity:  d.Quantity,
				Status:    d.Status,
			}
		case cerr.IsCode(err, cerr.NotFound):
		default:
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// OrphanedTasks returns tasks whose donation record no longer exists.
// Read-only diagnostic; cleanup stays a manual decision.
func (e *Engine) OrphanedTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := e.tasks.List(ctx, "", "")
	if err != nil {
		return nil, err
	}

	var orphans []*task.Task
	for _, t := range tasks {
		_, err := e.donations.Get(ctx, t.DonationID)
		switch {
		case err == nil:
		case cerr.IsCode(err, cerr.NotFound):
			orphans = append(orphans, t)
		default:
			return nil, err
		}
	}
	return orphans, nil
}
