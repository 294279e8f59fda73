package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodbridge/server/internal/config"
	"github.com/foodbridge/server/pkg/cerr"
	"github.com/foodbridge/server/pkg/geo"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *NominatimClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewNominatimClient(&config.GeoEnv{GeocoderBaseURL: srv.URL})
}

func TestReverseGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "51.5", r.URL.Query().Get("lat"))
		assert.Equal(t, "-0.1", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"place_id": 12345, "display_name": "Somewhere, London"}`))
	})

	addr, err := client.ReverseGeocode(context.Background(), geo.Point{Longitude: -0.1, Latitude: 51.5})
	require.NoError(t, err)
	assert.Equal(t, "Somewhere, London", addr)
}

func TestForwardGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "1 Shelter Way", r.URL.Query().Get("q"))
		w.Write([]byte(`[{"place_id": 1, "display_name": "1 Shelter Way, London", "lat": "51.5", "lon": "-0.12"}]`))
	})

	res, err := client.ForwardGeocode(context.Background(), "1 Shelter Way")
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Longitude: -0.12, Latitude: 51.5}, res.Point)
	assert.Equal(t, "1 Shelter Way, London", res.FormattedAddress)
}

func TestForwardGeocodeNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := client.ForwardGeocode(context.Background(), "nowhere at all")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestAutocomplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"place_id": 1, "display_name": "First Result"},
			{"place_id": 2, "display_name": "Second Result"}
		]`))
	})

	suggestions, err := client.Autocomplete(context.Background(), "First")
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, Suggestion{Description: "First Result", PlaceID: "1"}, suggestions[0])
}

func TestServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ReverseGeocode(context.Background(), geo.Point{})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))
}
