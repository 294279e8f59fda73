package volunteer

import "context"

type Repository interface {
	Create(ctx context.Context, v *Volunteer) error
	Get(ctx context.Context, id string) (*Volunteer, error)
	List(ctx context.Context) ([]*Volunteer, error)
	Update(ctx context.Context, v *Volunteer) error
}
