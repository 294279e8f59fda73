package repositoryimpl

import (
	"context"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/foodbridge/server/internal/volunteer"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/storage"
)

const volunteersPrefix = "volunteers"

type YAMLRepository struct {
	storage storage.Storage
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", volunteersPrefix, id)
}

func (r *YAMLRepository) Create(ctx context.Context, v *volunteer.Volunteer) error {
	exists, err := r.storage.Exists(ctx, path(v.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("volunteer", err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, "volunteer already exists", nil)
	}
	return r.write(ctx, v)
}

func (r *YAMLRepository) Get(ctx context.Context, id string) (*volunteer.Volunteer, error) {
	data, err := r.storage.Read(ctx, path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("volunteer", err)
	}
	var v volunteer.Volunteer
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal volunteer: %w", err))
	}
	return &v, nil
}

func (r *YAMLRepository) List(ctx context.Context) ([]*volunteer.Volunteer, error) {
	paths, err := r.storage.List(ctx, volunteersPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("volunteers", err)
	}
	var all []*volunteer.Volunteer
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var v volunteer.Volunteer
		if err := yaml.Unmarshal(data, &v); err != nil {
			continue
		}
		all = append(all, &v)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all, nil
}

func (r *YAMLRepository) Update(ctx context.Context, v *volunteer.Volunteer) error {
	exists, err := r.storage.Exists(ctx, path(v.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("volunteer", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "volunteer not found", nil)
	}
	return r.write(ctx, v)
}

func (r *YAMLRepository) write(ctx context.Context, v *volunteer.Volunteer) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal volunteer: %w", err))
	}
	if err := r.storage.Write(ctx, path(v.ID), data); err != nil {
		return cerr.WrapStorageWriteError("volunteer", err)
	}
	return nil
}
