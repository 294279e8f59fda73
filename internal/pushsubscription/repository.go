package pushsubscription

import "context"

// Repository persists push subscriptions. Upsert replaces an existing record
// with the same endpoint so re-registration from the same browser is
// idempotent.
type Repository interface {
	Upsert(ctx context.Context, s *Subscription) error
	ListByUser(ctx context.Context, userID string) ([]*Subscription, error)
	ListByRole(ctx context.Context, role string) ([]*Subscription, error)
	Delete(ctx context.Context, id string) error
	DeleteByEndpoint(ctx context.Context, userID, endpoint string) error
}
