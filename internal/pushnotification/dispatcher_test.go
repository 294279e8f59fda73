package pushnotification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/pushsubscription"
	subsimpl "github.com/foodbridge/server/internal/pushsubscription/repositoryimpl"
	"github.com/foodbridge/server/pkg/storage"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []string // endpoints, in order
	goneFor  map[string]bool
	received chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{goneFor: map[string]bool{}, received: make(chan struct{}, 16)}
}

func (f *fakeSender) Send(_ context.Context, sub *pushsubscription.Subscription, _ Notification) error {
	f.mu.Lock()
	f.sent = append(f.sent, sub.Endpoint)
	f.mu.Unlock()
	f.received <- struct{}{}
	if f.goneFor[sub.Endpoint] {
		return ErrSubscriptionGone
	}
	return nil
}

func (f *fakeSender) endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeSender) waitForSends(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.received:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for send %d of %d", i+1, n)
		}
	}
}

func newSubsRepo(t *testing.T) pushsubscription.Repository {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return subsimpl.NewYAMLRepository(store)
}

func addSub(t *testing.T, repo pushsubscription.Repository, userID, role, endpoint string) {
	t.Helper()
	require.NoError(t, repo.Upsert(context.Background(), &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Role:      role,
		Endpoint:  endpoint,
		Keys:      pushsubscription.Keys{P256dh: "p", Auth: "a"},
		CreatedAt: time.Now(),
	}))
}

func TestDispatcherNotifiesAssignedVolunteer(t *testing.T) {
	repo := newSubsRepo(t)
	addSub(t, repo, "vol-1", "volunteer", "https://push/vol-1")
	addSub(t, repo, "vol-2", "volunteer", "https://push/vol-2")

	sender := newFakeSender()
	bus := eventbus.New()
	dispatcher := NewDispatcher(sender, repo, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dispatcher.Run(ctx) }()

	bus.PublishNew(eventbus.EventTaskAssigned, "task-1", map[string]string{"volunteer_id": "vol-1"})
	sender.waitForSends(t, 1)

	assert.Equal(t, []string{"https://push/vol-1"}, sender.endpoints())
}

func TestDispatcherFansIssueOutToAdmins(t *testing.T) {
	repo := newSubsRepo(t)
	addSub(t, repo, "admin-1", "admin", "https://push/admin-1")
	addSub(t, repo, "admin-2", "admin", "https://push/admin-2")
	addSub(t, repo, "vol-1", "volunteer", "https://push/vol-1")

	sender := newFakeSender()
	bus := eventbus.New()
	dispatcher := NewDispatcher(sender, repo, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dispatcher.Run(ctx) }()

	bus.PublishNew(eventbus.EventTaskIssueReported, "task-1", map[string]string{"volunteer_id": "vol-1"})
	sender.waitForSends(t, 2)

	sent := sender.endpoints()
	assert.ElementsMatch(t, []string{"https://push/admin-1", "https://push/admin-2"}, sent)
}

func TestDispatcherDropsExpiredSubscription(t *testing.T) {
	repo := newSubsRepo(t)
	addSub(t, repo, "vol-1", "volunteer", "https://push/stale")

	sender := newFakeSender()
	sender.goneFor["https://push/stale"] = true
	bus := eventbus.New()
	dispatcher := NewDispatcher(sender, repo, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = dispatcher.Run(ctx) }()

	bus.PublishNew(eventbus.EventTaskAssigned, "task-1", map[string]string{"volunteer_id": "vol-1"})
	sender.waitForSends(t, 1)

	require.Eventually(t, func() bool {
		subs, err := repo.ListByUser(context.Background(), "vol-1")
		return err == nil && len(subs) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
