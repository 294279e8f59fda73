package pushsubscription

import "time"

// Keys are the browser-generated encryption keys for one push endpoint.
type Keys struct {
	P256dh string `json:"p256dh" yaml:"p256dh"`
	Auth   string `json:"auth" yaml:"auth"`
}

// Subscription is one browser push endpoint registered by a user. A user may
// hold several, one per device. Role is recorded at registration so the
// dispatcher can fan out to a whole role without a user lookup.
type Subscription struct {
	ID        string    `json:"id" yaml:"id"`
	UserID    string    `json:"userId" yaml:"user_id"`
	Role      string    `json:"role" yaml:"role"`
	Endpoint  string    `json:"endpoint" yaml:"endpoint"`
	Keys      Keys      `json:"keys" yaml:"keys"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}
