package metrics

import "context"

// Repository persists per-user counters. Increment is create-if-absent: the
// first event for a user creates the record with the delta as its initial
// values.
type Repository interface {
	Get(ctx context.Context, userID string) (*Metrics, error)
	Increment(ctx context.Context, userID string, delta Delta) (*Metrics, error)
}
