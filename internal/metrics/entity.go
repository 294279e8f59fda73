package metrics

import "time"

// Metrics holds per-user running counters. They are advisory: increments are
// driven by lifecycle events on a best-effort basis and may lag behind the
// donation/task records, which stay the source of truth.
type Metrics struct {
	UserID               string    `json:"userId" yaml:"user_id"`
	TasksAssigned        int       `json:"tasksAssigned" yaml:"tasks_assigned"`
	TasksCompleted       int       `json:"tasksCompleted" yaml:"tasks_completed"`
	DonationsCollected   int       `json:"donationsCollected" yaml:"donations_collected"`
	DonationsDelivered   int       `json:"donationsDelivered" yaml:"donations_delivered"`
	TotalDonationsPosted int       `json:"totalDonationsPosted" yaml:"total_donations_posted"`
	FoodItemsCollected   int       `json:"foodItemsCollected" yaml:"food_items_collected"`
	Rating               float64   `json:"rating" yaml:"rating"`
	ReviewCount          int       `json:"reviewCount" yaml:"review_count"`
	UpdatedAt            time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Delta is a set of counter increments applied atomically to one record.
type Delta struct {
	TasksAssigned        int
	TasksCompleted       int
	DonationsCollected   int
	DonationsDelivered   int
	TotalDonationsPosted int
	FoodItemsCollected   int
}

// Add applies a delta. Counters only ever grow.
func (m *Metrics) Add(d Delta) {
	m.TasksAssigned += d.TasksAssigned
	m.TasksCompleted += d.TasksCompleted
	m.DonationsCollected += d.DonationsCollected
	m.DonationsDelivered += d.DonationsDelivered
	m.TotalDonationsPosted += d.TotalDonationsPosted
	m.FoodItemsCollected += d.FoodItemsCollected
	m.UpdatedAt = time.Now()
}
