package mapbox_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/provider/mapbox"
)

const parisResponse = `{
  "type": "FeatureCollection",
  "features": [
    {
      "text": "Paris",
      "place_name": "Paris, France",
      "center": [2.35183, 48.85658],
      "context": [
        {"id": "region.13924", "text": "Paris"},
        {"id": "country.8781", "text": "France", "short_code": "fr"}
      ]
    },
    {
      "text": "Palermo",
      "place_name": "Palermo, Sicily, Italy",
      "center": [13.36, 38.12],
      "context": [{"id": "country.1", "text": "Italy", "short_code": "it"}]
    }
  ]
}`

func newProvider(t *testing.T, handler http.HandlerFunc) *mapbox.Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := mapbox.NewProvider(mapbox.Config{
		AccessToken: "pk.test",
		BaseURL:     server.URL,
		Language:    "en",
	}, server.Client())
	require.NoError(t, err)
	return provider
}

func TestNewProvider(t *testing.T) {
	provider, err := mapbox.NewProvider(mapbox.Config{}, nil)
	require.Error(t, err)
	require.Nil(t, provider)
}

func TestSearch(t *testing.T) {
	t.Run("should send query parameters and decode features", func(t *testing.T) {
		provider := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geocoding/v5/mapbox.places/San Fr.json", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "pk.test", q.Get("access_token"))
			assert.Equal(t, "true", q.Get("autocomplete"))
			assert.Equal(t, "place", q.Get("types"))
			assert.Equal(t, "10", q.Get("limit"))
			assert.Equal(t, "us", q.Get("country"))

			_, _ = w.Write([]byte(parisResponse))
		})

		records, err := provider.Search(context.Background(), &domain.ProviderRequest{
			Query: "San Fr",
			Scope: "US",
			Limit: 25,
		})

		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, "Paris", records[0].Name)
		require.Equal(t, "France", records[0].Country)
		require.Equal(t, "fr", records[0].CountryCode)
		require.InDelta(t, 48.85658, records[0].Latitude, 1e-9)
		require.InDelta(t, 2.35183, records[0].Longitude, 1e-9)

		s, ok := domain.Normalize(records[1])
		require.True(t, ok)
		require.Equal(t, "Palermo, Italy", s.Label)
		require.Equal(t, "IT", s.CountryCode)
	})

	t.Run("should classify 429 as rate limited", func(t *testing.T) {
		provider := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := provider.Search(context.Background(), &domain.ProviderRequest{Query: "Pa", Limit: 5})

		require.Equal(t, domain.FailureRateLimited, domain.ClassifyFailure(err))
	})

	t.Run("should classify unauthorized as a network failure", func(t *testing.T) {
		provider := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := provider.Search(context.Background(), &domain.ProviderRequest{Query: "Pa", Limit: 5})

		var providerErr *domain.ProviderError
		require.ErrorAs(t, err, &providerErr)
		require.Equal(t, http.StatusUnauthorized, providerErr.StatusCode)
		require.Equal(t, domain.FailureNetwork, providerErr.Kind)
	})

	t.Run("should classify a body without features as malformed", func(t *testing.T) {
		provider := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"message": "hello"}`))
		})

		_, err := provider.Search(context.Background(), &domain.ProviderRequest{Query: "Pa", Limit: 5})

		require.Equal(t, domain.FailureMalformed, domain.ClassifyFailure(err))
	})

	t.Run("should accept an empty feature list", func(t *testing.T) {
		provider := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		})

		records, err := provider.Search(context.Background(), &domain.ProviderRequest{Query: "zzqx", Limit: 5})

		require.NoError(t, err)
		require.Empty(t, records)
	})
}
