package pushnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/internal/pushsubscription"
)

// ErrSubscriptionGone reports that the push service no longer knows the
// endpoint. Callers should drop the subscription.
var ErrSubscriptionGone = fmt.Errorf("push subscription gone")

// Notification is the payload shown by the service worker.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Sender delivers one notification to one endpoint.
type Sender interface {
	Send(ctx context.Context, sub *pushsubscription.Subscription, n Notification) error
}

// WebPushSender sends through the Web Push protocol with VAPID auth.
type WebPushSender struct {
	publicKey  string
	privateKey string
	contact    string
}

func NewWebPushSender(env *config.VAPIDEnv) *WebPushSender {
	return &WebPushSender{
		publicKey:  env.VAPIDPublicKey,
		privateKey: env.VAPIDPrivateKey,
		contact:    env.VAPIDContact,
	}
}

// Enabled reports whether VAPID keys are configured. When false, Send is a
// no-op and dispatching is skipped entirely.
func (s *WebPushSender) Enabled() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *WebPushSender) Send(ctx context.Context, sub *pushsubscription.Subscription, n Notification) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.contact,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             3600,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return ErrSubscriptionGone
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
