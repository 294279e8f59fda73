package task

import "context"

// Repository persists tasks. Lifecycle fields are written through Mutate,
// which runs the whole read-validate-write sequence under the repository
// lock so volunteer updates and admin reassignments cannot interleave.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// List returns tasks filtered by volunteer id and/or donation id
	// (empty string matches all), most recently assigned first.
	List(ctx context.Context, volunteerID, donationID string) ([]*Task, error)
	ListIssues(ctx context.Context) ([]*Task, error)
	// Mutate applies fn to the stored task and persists the result. fn
	// errors abort the write and propagate unchanged.
	Mutate(ctx context.Context, id string, fn func(*Task) error) (*Task, error)
	// Put overwrites the stored record. Reserved for compensation paths
	// that restore a snapshot taken earlier in the same operation.
	Put(ctx context.Context, t *Task) error
}
