package volunteer

import (
	"math"
	"testing"

	"github.com/foodbridge/server/pkg/geo"
)

func TestRankByProximity(t *testing.T) {
	pickup := geo.Point{Longitude: 100.5018, Latitude: 13.7563} // Bangkok

	near := &Volunteer{ID: "near", Status: StatusActive, Home: &geo.Point{Longitude: 100.49, Latitude: 13.75}}
	far := &Volunteer{ID: "far", Status: StatusActive, Home: &geo.Point{Longitude: 98.9853, Latitude: 18.7883}} // Chiang Mai
	noHome := &Volunteer{ID: "no-home", Status: StatusActive}
	inactive := &Volunteer{ID: "inactive", Status: StatusInactive, Home: &geo.Point{Longitude: 100.50, Latitude: 13.76}}

	ranked := RankByProximity([]*Volunteer{noHome, far, inactive, near}, pickup)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked volunteers (inactive excluded), got %d", len(ranked))
	}
	wantOrder := []string{"near", "far", "no-home"}
	for i, want := range wantOrder {
		if ranked[i].Volunteer.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].Volunteer.ID)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].DistanceKm < ranked[i-1].DistanceKm {
			t.Errorf("distances not non-decreasing at %d: %v < %v", i, ranked[i].DistanceKm, ranked[i-1].DistanceKm)
		}
	}
	if !math.IsInf(ranked[2].DistanceKm, 1) {
		t.Errorf("volunteer without home should rank at infinite distance, got %v", ranked[2].DistanceKm)
	}
}

func TestRankByProximityEmpty(t *testing.T) {
	ranked := RankByProximity(nil, geo.Point{})
	if len(ranked) != 0 {
		t.Errorf("expected empty ranking, got %d entries", len(ranked))
	}
}
