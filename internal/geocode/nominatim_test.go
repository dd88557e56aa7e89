package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestSearchTakesFirstResult(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "Plaza Mayor", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"lat": "40.415363", "lon": "-3.707398", "display_name": "Plaza Mayor, Madrid"},
			{"lat": "4.598056", "lon": "-74.075833", "display_name": "Plaza Mayor, Bogotá"}
		]`))
	})

	lat, lng, err := geocoder.Search(context.Background(), "Plaza Mayor")
	require.NoError(t, err)
	assert.InDelta(t, 40.415363, lat, 1e-9)
	assert.InDelta(t, -3.707398, lng, 1e-9)
}

func TestSearchWithoutResults(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	_, _, err := geocoder.Search(context.Background(), "xyzzy")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSearchServerError(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, _, err := geocoder.Search(context.Background(), "Plaza Mayor")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestSearchBadCoordinatePayload(t *testing.T) {
	geocoder := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat": "not-a-number", "lon": "0", "display_name": "???"}]`))
	})

	_, _, err := geocoder.Search(context.Background(), "Plaza Mayor")
	assert.Error(t, err)
}
