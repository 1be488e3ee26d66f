package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/placefinder/internal/config"
	"github.com/davidbz/placefinder/internal/domain"
	api "github.com/davidbz/placefinder/internal/http"
	"github.com/davidbz/placefinder/internal/http/middleware"
	"github.com/davidbz/placefinder/internal/observability"
	"github.com/davidbz/placefinder/internal/session"
)

// stubProvider returns fixed records or a fixed error.
type stubProvider struct {
	calls   atomic.Int32
	records []domain.PlaceRecord
	err     error
}

func (s *stubProvider) Search(context.Context, *domain.ProviderRequest) ([]domain.PlaceRecord, error) {
	s.calls.Add(1)
	return s.records, s.err
}

func (s *stubProvider) Name() string {
	return "stub"
}

type fixture struct {
	provider *stubProvider
	breaker  *domain.Breaker
	pool     *session.Pool
	server   *api.Server
}

func newFixture(t *testing.T, provider *stubProvider) *fixture {
	t.Helper()

	cfg := domain.LookupConfig{
		MinQueryLength: 2,
		MaxResults:     5,
		FallbackPlaces: []string{"Paris, France", "London, United Kingdom"},
	}
	breaker := domain.NewBreaker(time.Minute, 1, nil)
	fallback := domain.NewFallbackMatcherFromLabels(cfg.FallbackPlaces)

	pool := session.NewPool(session.Config{IdleTTL: time.Minute}, func() *domain.LookupClient {
		deps := domain.LookupDeps{Breaker: breaker, Fallback: fallback}
		if provider != nil {
			deps.Provider = provider
		}
		return domain.NewLookupClient(cfg, deps)
	})

	handler := api.NewHandler(pool, &session.Config{Header: "X-Session-Id"})
	chain := middleware.BuildMiddlewareChain(&config.CORSConfig{}, middleware.NewIPRateLimiter(&config.RateLimitConfig{}))
	server := api.NewServer(&config.ServerConfig{Port: 0}, handler, chain, observability.NewMetricsRegistry())

	return &fixture{provider: provider, breaker: breaker, pool: pool, server: server}
}

func (f *fixture) do(method, target, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}
	w := httptest.NewRecorder()
	f.server.Routes().ServeHTTP(w, req)
	return w
}

func TestHandleSearch(t *testing.T) {
	t.Run("should return provider suggestions", func(t *testing.T) {
		f := newFixture(t, &stubProvider{records: []domain.PlaceRecord{
			{City: "Paris", Country: "France", CountryCode: "fr", Latitude: 48.85, Longitude: 2.35, HasCoordinates: true},
		}})

		w := f.do(http.MethodGet, "/v1/places/search?q=Pa", "s1")

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "s1", w.Header().Get("X-Session-Id"))

		var resp api.SearchResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "Pa", resp.Query)
		require.False(t, resp.Degraded)
		require.Len(t, resp.Suggestions, 1)
		require.Equal(t, "Paris, France", resp.Suggestions[0].Label)
		require.Equal(t, "FR", resp.Suggestions[0].CountryCode)
	})

	t.Run("should degrade to the fallback dataset", func(t *testing.T) {
		f := newFixture(t, &stubProvider{err: &domain.ProviderError{
			Provider: "stub", Kind: domain.FailureRateLimited, StatusCode: 429, Err: domain.ErrRateLimited,
		}})

		w := f.do(http.MethodGet, "/v1/places/search?q=lon", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.NotEmpty(t, w.Header().Get("X-Session-Id"))

		var resp api.SearchResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.True(t, resp.Degraded)
		require.Len(t, resp.Suggestions, 1)
		require.Equal(t, "London, United Kingdom", resp.Suggestions[0].Label)
	})

	t.Run("should return an empty list for short queries", func(t *testing.T) {
		f := newFixture(t, &stubProvider{})

		w := f.do(http.MethodGet, "/v1/places/search?q=P", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"query":"P","suggestions":[],"degraded":false}`, w.Body.String())
		require.Equal(t, int32(0), f.provider.calls.Load())
	})

	t.Run("should reject invalid parameters", func(t *testing.T) {
		f := newFixture(t, &stubProvider{})

		for _, target := range []string{
			"/v1/places/search?q=Pa&limit=abc",
			"/v1/places/search?q=Pa&limit=0",
			"/v1/places/search?q=Pa&limit=51",
		} {
			w := f.do(http.MethodGet, target, "")
			require.Equal(t, http.StatusBadRequest, w.Code, target)
			require.Contains(t, w.Body.String(), "limit")
		}
		require.Equal(t, int32(0), f.provider.calls.Load())
	})

	t.Run("should reject other methods", func(t *testing.T) {
		f := newFixture(t, &stubProvider{})

		w := f.do(http.MethodPost, "/v1/places/search?q=Pa", "")

		require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleStatusAndRetry(t *testing.T) {
	f := newFixture(t, &stubProvider{})
	f.breaker.RecordFailure(domain.FailureNetwork)

	w := f.do(http.MethodGet, "/v1/places/status", "s1")
	require.Equal(t, http.StatusOK, w.Code)

	var status api.StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.Equal(t, "stub", status.Provider)
	require.True(t, status.Degraded)
	require.Equal(t, "open", status.Breaker.State)
	require.False(t, status.Breaker.Healthy)
	require.NotNil(t, status.Breaker.UnhealthySince)

	w = f.do(http.MethodPost, "/v1/places/retry", "s1")
	require.Equal(t, http.StatusOK, w.Code)

	status = api.StatusResponse{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.False(t, status.Degraded)
	require.Equal(t, "closed", status.Breaker.State)
	require.Nil(t, status.Breaker.UnhealthySince)
}

func TestHandleStatus_FallbackOnly(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/v1/places/status", "")

	var status api.StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	require.Empty(t, status.Provider)
	require.True(t, status.Degraded)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	w := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSessionPooling(t *testing.T) {
	f := newFixture(t, &stubProvider{})

	w := f.do(http.MethodGet, "/v1/places/search?q=Pa", "")
	minted := w.Header().Get("X-Session-Id")
	require.NotEmpty(t, minted)
	require.Equal(t, 0, f.pool.Len())

	f.do(http.MethodGet, "/v1/places/search?q=Pa", "")
	require.Equal(t, 0, f.pool.Len())

	w = f.do(http.MethodGet, "/v1/places/search?q=Par", minted)
	require.Equal(t, minted, w.Header().Get("X-Session-Id"))
	require.Equal(t, 1, f.pool.Len())
}
