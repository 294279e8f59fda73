package pushnotification

import (
	"context"
	"errors"
	"log/slog"

	"github.com/foodbridge/server/internal/eventbus"
	"github.com/foodbridge/server/internal/identity"
	"github.com/foodbridge/server/internal/pushsubscription"
)

const eventBufferSize = 64

// Dispatcher turns lifecycle events into push notifications. Assignment and
// reassignment go to the affected volunteer, issue reports go to every admin
// subscription. Delivery is best effort; expired endpoints are dropped.
type Dispatcher struct {
	sender Sender
	subs   pushsubscription.Repository
	bus    *eventbus.Bus
}

func NewDispatcher(sender Sender, subs pushsubscription.Repository, bus *eventbus.Bus) *Dispatcher {
	return &Dispatcher{sender: sender, subs: subs, bus: bus}
}

// Run consumes events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	id, events := d.bus.Subscribe(eventBufferSize)
	defer d.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.handle(ctx, ev)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev *eventbus.Event) {
	switch ev.Type {
	case eventbus.EventTaskAssigned:
		d.notifyUser(ctx, ev.Metadata["volunteer_id"], Notification{
			Title: "New task assigned",
			Body:  "You have a new pickup or delivery task.",
			URL:   "/tasks/" + ev.ResourceID,
		})
	case eventbus.EventTaskReassigned:
		d.notifyUser(ctx, ev.Metadata["volunteer_id"], Notification{
			Title: "Task reassigned to you",
			Body:  "A task previously handled by another volunteer needs you.",
			URL:   "/tasks/" + ev.ResourceID,
		})
	case eventbus.EventTaskIssueReported:
		d.notifyRole(ctx, string(identity.RoleAdmin), Notification{
			Title: "Task issue reported",
			Body:  "A volunteer flagged a task for review.",
			URL:   "/tasks/" + ev.ResourceID,
		})
	}
}

func (d *Dispatcher) notifyUser(ctx context.Context, userID string, n Notification) {
	if userID == "" {
		return
	}
	subs, err := d.subs.ListByUser(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list push subscriptions", "user_id", userID, "error", err)
		return
	}
	d.send(ctx, subs, n)
}

func (d *Dispatcher) notifyRole(ctx context.Context, role string, n Notification) {
	subs, err := d.subs.ListByRole(ctx, role)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list push subscriptions", "role", role, "error", err)
		return
	}
	d.send(ctx, subs, n)
}

func (d *Dispatcher) send(ctx context.Context, subs []*pushsubscription.Subscription, n Notification) {
	for _, sub := range subs {
		err := d.sender.Send(ctx, sub, n)
		switch {
		case err == nil:
		case errors.Is(err, ErrSubscriptionGone):
			if delErr := d.subs.Delete(ctx, sub.ID); delErr != nil {
				slog.WarnContext(ctx, "failed to drop expired push subscription",
					"subscription_id", sub.ID, "error", delErr)
			}
		default:
			slog.WarnContext(ctx, "failed to send push notification",
				"subscription_id", sub.ID, "error", err)
		}
	}
}
