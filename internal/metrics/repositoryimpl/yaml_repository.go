package repositoryimpl

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/foodbridge/server/internal/metrics"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/storage"
)

const metricsPrefix = "metrics"

// YAMLRepository stores one YAML document per user. The mutex makes the
// read-add-write inside Increment atomic against this process.
type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(userID string) string {
	return fmt.Sprintf("%s/%s.yaml", metricsPrefix, userID)
}

func (r *YAMLRepository) Get(ctx context.Context, userID string) (*metrics.Metrics, error) {
	data, err := r.storage.Read(ctx, path(userID))
	if err != nil {
		return nil, cerr.WrapStorageReadError("metrics", err)
	}
	var m metrics.Metrics
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal metrics: %w", err))
	}
	return &m, nil
}

func (r *YAMLRepository) Increment(ctx context.Context, userID string, delta metrics.Delta) (*metrics.Metrics, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.Get(ctx, userID)
	switch {
	case err == nil:
	case cerr.IsCode(err, cerr.NotFound):
		m = &metrics.Metrics{UserID: userID}
	default:
		return nil, err
	}

	m.Add(delta)

	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal metrics: %w", err))
	}
	if err := r.storage.Write(ctx, path(userID), data); err != nil {
		return nil, cerr.WrapStorageWriteError("metrics", err)
	}
	return m, nil
}
