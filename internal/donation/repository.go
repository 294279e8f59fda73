package donation

import "context"

// Repository persists donations. Status is never written through a plain
// Update: Transition performs the conditional (expected-status) update that
// keeps concurrent assignments from double-advancing the same donation.
type Repository interface {
	Create(ctx context.Context, d *Donation) error
	Get(ctx context.Context, id string) (*Donation, error)
	List(ctx context.Context, status Status) ([]*Donation, error)
	// Transition atomically moves the donation from `from` to `to`,
	// applying `apply` to the record before persisting. It fails with
	// FailedPrecondition, without writing, when the current status is not
	// `from`.
	Transition(ctx context.Context, id string, from, to Status, apply func(*Donation)) (*Donation, error)
	// Put overwrites the stored record. Reserved for compensation paths
	// that restore an earlier snapshot after a paired write failed.
	Put(ctx context.Context, d *Donation) error
}
