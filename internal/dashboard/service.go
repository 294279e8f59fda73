package dashboard

import (
	"context"
	"sort"

	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/internal/task"
)

// Summary is the admin overview computed from live records on every request.
// Counts here can disagree with the per-user metrics ledger; the lifecycle
// records win.
type Summary struct {
	TotalDonations    int            `json:"totalDonations"`
	DonationsByStatus map[string]int `json:"donationsByStatus"`
	TasksCompleted    int            `json:"tasksCompleted"`
	TasksInTransit    int            `json:"tasksInTransit"`
	OpenIssues        int            `json:"openIssues"`
	CompletionRate    float64        `json:"completionRate"`
	MonthlyDonations  []MonthlyCount `json:"monthlyDonations"`
}

// MonthlyCount is one month's donation volume, keyed as "2026-01".
type MonthlyCount struct {
	Month     string `json:"month"`
	Posted    int    `json:"posted"`
	Delivered int    `json:"delivered"`
}

// Service aggregates donation and task records into dashboard summaries.
type Service struct {
	donations donation.Repository
	tasks     task.Repository
}

func NewService(donations donation.Repository, tasks task.Repository) *Service {
	return &Service{donations: donations, tasks: tasks}
}

func (s *Service) Summarize(ctx context.Context) (*Summary, error) {
	donations, err := s.donations.List(ctx, "")
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx, "", "")
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		TotalDonations:    len(donations),
		DonationsByStatus: map[string]int{},
	}

	byMonth := map[string]*MonthlyCount{}
	monthOf := func(key string) *MonthlyCount {
		mc, ok := byMonth[key]
		if !ok {
			mc = &MonthlyCount{Month: key}
			byMonth[key] = mc
		}
		return mc
	}
	for _, d := range donations {
		sum.DonationsByStatus[string(d.Status)]++
		monthOf(d.PostedAt.Format("2006-01")).Posted++
		if d.DeliveredAt != nil {
			monthOf(d.DeliveredAt.Format("2006-01")).Delivered++
		}
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	// Most recent month first.
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	for _, m := range months {
		sum.MonthlyDonations = append(sum.MonthlyDonations, *byMonth[m])
	}

	total := 0
	for _, t := range tasks {
		switch t.Status {
		case task.StatusCompleted:
			sum.TasksCompleted++
		case task.StatusEnRoute:
			sum.TasksInTransit++
		case task.StatusPendingReview:
			sum.OpenIssues++
		}
		if t.Status.Terminal() || t.Status == task.StatusEnRoute ||
			t.Status == task.StatusAssigned || t.Status == task.StatusPendingReview {
			total++
		}
	}
	if total > 0 {
		sum.CompletionRate = float64(sum.TasksCompleted) / float64(total)
	}
	return sum, nil
}
