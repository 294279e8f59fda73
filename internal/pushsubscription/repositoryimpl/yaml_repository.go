package repositoryimpl

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/foodbridge/server/internal/pushsubscription"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/storage"
)

const subscriptionsPrefix = "push_subscriptions"

type YAMLRepository struct {
	storage storage.Storage
	mu      sync.Mutex
}

func NewYAMLRepository(s storage.Storage) *YAMLRepository {
	return &YAMLRepository{storage: s}
}

func path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", subscriptionsPrefix, id)
}

func (r *YAMLRepository) Upsert(ctx context.Context, sub *pushsubscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Same endpoint re-registered by the same user replaces the old record.
	existing, err := r.readAll(ctx)
	if err != nil {
		return err
	}
	for _, s := range existing {
		if s.UserID == sub.UserID && s.Endpoint == sub.Endpoint {
			sub.ID = s.ID
			break
		}
	}
	return r.write(ctx, sub)
}

func (r *YAMLRepository) ListByUser(ctx context.Context, userID string) ([]*pushsubscription.Subscription, error) {
	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*pushsubscription.Subscription
	for _, s := range all {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *YAMLRepository) ListByRole(ctx context.Context, role string) ([]*pushsubscription.Subscription, error) {
	all, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*pushsubscription.Subscription
	for _, s := range all {
		if s.Role == role {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *YAMLRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.storage.Delete(ctx, path(id)); err != nil {
		return cerr.WrapStorageDeleteError("push subscription", err)
	}
	return nil
}

func (r *YAMLRepository) DeleteByEndpoint(ctx context.Context, userID, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.readAll(ctx)
	if err != nil {
		return err
	}
	for _, s := range all {
		if s.UserID == userID && s.Endpoint == endpoint {
			if err := r.storage.Delete(ctx, path(s.ID)); err != nil {
				return cerr.WrapStorageDeleteError("push subscription", err)
			}
			return nil
		}
	}
	return cerr.NewError(cerr.NotFound, "push subscription not found", nil)
}

func (r *YAMLRepository) readAll(ctx context.Context) ([]*pushsubscription.Subscription, error) {
	paths, err := r.storage.List(ctx, subscriptionsPrefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("push subscriptions", err)
	}
	var all []*pushsubscription.Subscription
	for _, p := range paths {
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		var s pushsubscription.Subscription
		if err := yaml.Unmarshal(data, &s); err != nil {
			continue
		}
		all = append(all, &s)
	}
	return all, nil
}

func (r *YAMLRepository) write(ctx context.Context, s *pushsubscription.Subscription) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal push subscription: %w", err))
	}
	if err := r.storage.Write(ctx, path(s.ID), data); err != nil {
		return cerr.WrapStorageWriteError("push subscription", err)
	}
	return nil
}
