package volunteer

import (
	"time"

	"github.com/foodbridge/server/pkg/geo"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Volunteer is the profile the core needs: activity gates assignment and
// ranking eligibility, the home point feeds proximity ranking.
type Volunteer struct {
	ID        string     `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Phone     string     `json:"phone,omitempty" yaml:"phone,omitempty"`
	Status    Status     `json:"status" yaml:"status"`
	Home      *geo.Point `json:"home,omitempty" yaml:"home,omitempty"`
	Address   string     `json:"address,omitempty" yaml:"address,omitempty"`
	CreatedAt time.Time  `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"updated_at"`
}

func (v *Volunteer) Active() bool {
	return v.Status == StatusActive
}
