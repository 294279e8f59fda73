package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/geo"
)

// NominatimClient talks to a Nominatim-compatible geocoding endpoint.
type NominatimClient struct {
	baseURL string
	email   string
	client  *http.Client
}

func NewNominatimClient(env *config.GeoEnv) *NominatimClient {
	return &NominatimClient{
		baseURL: strings.TrimSuffix(env.GeocoderBaseURL, "/"),
		email:   env.GeocoderEmail,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// FromEnv returns the configured geocoder, or Noop when no endpoint is set.
func FromEnv(env *config.GeoEnv) Geocoder {
	if env.GeocoderBaseURL == "" {
		return Noop{}
	}
	return NewNominatimClient(env)
}

type nominatimPlace struct {
	PlaceID     json.Number `json:"place_id"`
	DisplayName string      `json:"display_name"`
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
}

func (c *NominatimClient) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(p.Longitude, 'f', -1, 64))

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", q, &place); err != nil {
		return "", err
	}
	return place.DisplayName, nil
}

func (c *NominatimClient) ForwardGeocode(ctx context.Context, query string) (*Result, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, cerr.NewError(cerr.NotFound, "no match for address", nil)
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "geocoder returned malformed coordinates", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, cerr.NewError(cerr.Unavailable, "geocoder returned malformed coordinates", err)
	}
	return &Result{
		Point:            geo.Point{Longitude: lon, Latitude: lat},
		FormattedAddress: places[0].DisplayName,
	}, nil
}

func (c *NominatimClient) Autocomplete(ctx context.Context, text string) ([]Suggestion, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", text)
	q.Set("limit", "5")

	var places []nominatimPlace
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, 0, len(places))
	for _, p := range places {
		suggestions = append(suggestions, Suggestion{
			Description: p.DisplayName,
			PlaceID:     p.PlaceID.String(),
		})
	}
	return suggestions, nil
}

func (c *NominatimClient) get(ctx context.Context, path string, q url.Values, out any) error {
	if c.email != "" {
		q.Set("email", c.email)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "geocoder unavailable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cerr.NewError(cerr.Unavailable, "geocoder unavailable",
			fmt.Errorf("geocoder returned status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.Unavailable, "geocoder returned malformed response", err)
	}
	return nil
}
