package geocode

import (
	"context"

	"github.com/foodbridge/server/pkg/geo"
)

// Result is a forward-geocoded place.
type Result struct {
	Point            geo.Point `json:"point"`
	FormattedAddress string    `json:"formattedAddress"`
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Description string `json:"description"`
	PlaceID     string `json:"placeId"`
}

// Geocoder is the external mapping collaborator. It is consumed only at the
// edges (donation posting, volunteer address entry); lifecycle logic never
// calls it, and its failures are treated as best-effort by callers.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p geo.Point) (string, error)
	ForwardGeocode(ctx context.Context, query string) (*Result, error)
	Autocomplete(ctx context.Context, text string) ([]Suggestion, error)
}

// Noop is used when no geocoder endpoint is configured: addresses pass
// through exactly as the caller supplied them.
type Noop struct{}

func (Noop) ReverseGeocode(context.Context, geo.Point) (string, error) {
	return "", nil
}

func (Noop) ForwardGeocode(context.Context, string) (*Result, error) {
	return nil, nil
}

func (Noop) Autocomplete(context.Context, string) ([]Suggestion, error) {
	return nil, nil
}
