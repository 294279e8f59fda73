package volunteer

import (
	"math"
	"sort"

	"github.com/foodbridge/server/pkg/geo"
)

// Ranked pairs a volunteer with the distance from their home point to a
// pickup point. DistanceKm is infinite when no home point is recorded.
type Ranked struct {
	Volunteer  *Volunteer
	DistanceKm float64
}

// RankByProximity orders active volunteers by ascending distance to pickup.
// Volunteers without a home point sort last. The ranking is advisory: admins
// may assign anyone on the list.
func RankByProximity(candidates []*Volunteer, pickup geo.Point) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, v := range candidates {
		if !v.Active() {
			continue
		}
		dist := math.Inf(1)
		if v.Home != nil {
			dist = geo.DistanceKm(*v.Home, pickup)
		}
		ranked = append(ranked, Ranked{Volunteer: v, DistanceKm: dist})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}
