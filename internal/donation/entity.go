package donation

import (
	"time"

	"github.com/foodbridge/server/pkg/geo"
)

// Status is the donation lifecycle stage. It only ever moves forward along
// the Transitions edges and is written exclusively through
// Repository.Transition.
type Status string

const (
	StatusPendingAssignment       Status = "pendingAssignment"
	StatusAssignedForCollection   Status = "assignedForCollection"
	StatusCollected               Status = "collected"
	StatusAssignedForDistribution Status = "assignedForDistribution"
	StatusDelivered               Status = "delivered"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingAssignment, StatusAssignedForCollection, StatusCollected,
		StatusAssignedForDistribution, StatusDelivered:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered
}

// transitions is the single authority for the donation state machine.
var transitions = map[Status]Status{
	StatusPendingAssignment:       StatusAssignedForCollection,
	StatusAssignedForCollection:   StatusCollected,
	StatusCollected:               StatusAssignedForDistribution,
	StatusAssignedForDistribution: StatusDelivered,
}

// CanTransition reports whether from → to is an allowed edge.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Donation is a surplus-food offer tracked from posting to delivery.
// Pickup and dropoff hold point-in-time snapshots; tasks copy them at
// assignment and never read them back.
type Donation struct {
	ID             string     `json:"id" yaml:"id"`
	DonorID        string     `json:"donorId" yaml:"donor_id"`
	DonorName      string     `json:"donorName" yaml:"donor_name"`
	ItemType       string     `json:"itemType" yaml:"item_type"`
	Quantity       string     `json:"quantity" yaml:"quantity"`
	Notes          string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Status         Status     `json:"status" yaml:"status"`
	Pickup         geo.Point  `json:"pickup" yaml:"pickup"`
	PickupAddress  string     `json:"pickupAddress" yaml:"pickup_address"`
	Dropoff        *geo.Point `json:"dropoff,omitempty" yaml:"dropoff,omitempty"`
	DropoffAddress string     `json:"dropoffAddress,omitempty" yaml:"dropoff_address,omitempty"`
	AvailableFrom  time.Time  `json:"availableFrom" yaml:"available_from"`
	PostedAt       time.Time  `json:"postedAt" yaml:"posted_at"`
	CollectedAt    *time.Time `json:"collectedAt,omitempty" yaml:"collected_at,omitempty"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty" yaml:"delivered_at,omitempty"`
	CollectedBy    string     `json:"collectedBy,omitempty" yaml:"collected_by,omitempty"`
	DistributedBy  string     `json:"distributedBy,omitempty" yaml:"distributed_by,omitempty"`
}
