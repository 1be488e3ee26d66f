package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/placefinder/internal/config"
	"github.com/davidbz/placefinder/internal/http/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := middleware.Chain(tag("first"), tag("second"))(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second"}, order)
}

func TestTrace(t *testing.T) {
	w := httptest.NewRecorder()

	middleware.Trace()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Trace-Id"))
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	t.Run("should reject requests over the burst per address", func(t *testing.T) {
		limiter := middleware.NewIPRateLimiter(&config.RateLimitConfig{RPS: 0.001, Burst: 2})
		handler := limiter.RateLimit()(okHandler())

		codes := make([]int, 0, 3)
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/v1/places/search", nil)
			req.RemoteAddr = "10.0.0.1:5000"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

		other := httptest.NewRequest(http.MethodGet, "/v1/places/search", nil)
		other.RemoteAddr = "10.0.0.2:5000"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, other)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should not limit when disabled", func(t *testing.T) {
		handler := middleware.NewIPRateLimiter(&config.RateLimitConfig{}).RateLimit()(okHandler())

		for range 50 {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestCORS(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://app.example.com"},
		AllowedMethods: []string{http.MethodGet},
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/places/search", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()

	middleware.CORS(cfg)(okHandler()).ServeHTTP(w, req)

	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
