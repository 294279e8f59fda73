package repositoryimpl

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/foodbridge/server/internal/donation"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/storage"
)

const donationsPrefix = "donations"

// YAMLRepository stores one YAML document per donation. The mutex makes the
// read-check-write inside Transition atomic against this process; the storage
// backend guarantees per-document write atomicity.
type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", donationsPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, d *donation.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.storage.Exists(ctx, path(d.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("donation", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "donation already exists", nil)
	}
	return r.write(ctx, d)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*donation.Donation, error) {
	return r.read(ctx, id)
}

func (r *YAMLRepository) List(ctx context.Context, status donation.Status) ([]*donation.Donation, error) {
	paths, err := r.storage.List(ctx, donationsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("donations", err)
	}

	var all []*donation.Donation
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var d donation.Donation
		if err := yaml.Unmarshal(data, &d); err != nil {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		all = append(all, &d)
	}

	// Most recently posted first; queue-specific orderings are applied by
	// the caller.
	sort.Slice(all, func(i, j int) bool {
		return all[i].PostedAt.After(all[j].PostedAt)
	})
	return all, nil
}

func (r *YAMLRepository) Transition(ctx context.Context, id string, from, to donation.Status, apply func(*donation.Donation)) (*donation.Donation, error) {
	if !donation.CanTransition(from, to) {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("donation transition %q to %q is not allowed", from, to), nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, err := r.read(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != from {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			fmt.Sprintf("donation is %q, expected %q", d.Status, from), nil)
	}
	d.Status = to
	if apply != nil {
		apply(d)
	}
	if err := r.write(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *YAMLRepository) Put(ctx context.Context, d *donation.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(ctx, d)
}

func (r *YAMLRepository) read(ctx context.Context, id string) (*donation.Donation, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("donation", err)
	}
	var d donation.Donation
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal donation: %w", err))
	}
	return &d, nil
}

func (r *YAMLRepository) write(ctx context.Context, d *donation.Donation) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal donation: %w", err))
	}
	if err := r.storage.Write(ctx, path(d.ID), data); err != nil {
		return cerr.WrapStorageWriteError("donation", err)
	}
	return nil
}
