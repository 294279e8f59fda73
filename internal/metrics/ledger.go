package metrics

import (
	"context"
	"strconv"
	"strings"
	"unicode"
)

// Ledger records lifecycle side effects as counter increments. Callers treat
// every Ledger error as log-and-continue: a failed increment must never block
// or roll back the lifecycle transition that triggered it.
type Ledger struct {
	repo Repository
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

func (l *Ledger) RecordDonationPosted(ctx context.Context, donorID, quantity string) error {
	_, err := l.repo.Increment(ctx, donorID, Delta{
		TotalDonationsPosted: 1,
		FoodItemsCollected:   ParseQuantity(quantity),
	})
	return err
}

func (l *Ledger) RecordTaskAssigned(ctx context.Context, volunteerID string) error {
	_, err := l.repo.Increment(ctx, volunteerID, Delta{TasksAssigned: 1})
	return err
}

// RecordTaskCompleted bumps tasksCompleted plus the phase-specific counter.
// collection reports true for pickup tasks, false for distribution.
func (l *Ledger) RecordTaskCompleted(ctx context.Context, volunteerID string, collection bool) error {
	delta := Delta{TasksCompleted: 1}
	if collection {
		delta.DonationsCollected = 1
	} else {
		delta.DonationsDelivered = 1
	}
	_, err := l.repo.Increment(ctx, volunteerID, delta)
	return err
}

func (l *Ledger) Get(ctx context.Context, userID string) (*Metrics, error) {
	return l.repo.Get(ctx, userID)
}

// ParseQuantity extracts the leading integer from free-text quantity such as
// "10 lbs" or "3 boxes". Non-numeric input contributes 0.
func ParseQuantity(quantity string) int {
	s := strings.TrimSpace(quantity)
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
