package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/provider"
)

func TestTransport_Get(t *testing.T) {
	t.Run("should pass through listed statuses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("nothing"))
		}))
		defer server.Close()

		transport := provider.NewTransport("test", server.Client(), 0)

		resp, err := transport.Get(context.Background(), server.URL, http.StatusNotFound)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, "nothing", string(resp.Body))
	})

	t.Run("should report exhausted local quota as throttling", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		// One token per 10s: the second call cannot be admitted before its deadline.
		transport := provider.NewTransport("test", server.Client(), 0.1)

		_, err := transport.Get(context.Background(), server.URL)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = transport.Get(ctx, server.URL)
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrThrottled)
		require.Equal(t, domain.FailureThrottled, domain.ClassifyFailure(err))
	})

	t.Run("should not open the breaker when only the local quota is exhausted", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("[]"))
		}))
		defer server.Close()

		transport := provider.NewTransport("test", server.Client(), 1)
		breaker := domain.NewBreaker(30*time.Second, 1, nil)

		var (
			wg        sync.WaitGroup
			throttled atomic.Int32
		)
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				_, err := transport.Get(ctx, server.URL)
				kind := domain.ClassifyFailure(err)
				if kind == domain.FailureThrottled {
					throttled.Add(1)
				}
				breaker.RecordFailure(kind)
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), hits.Load())
		require.Equal(t, int32(4), throttled.Load())
		require.False(t, breaker.IsOpen())
	})

	t.Run("should report caller cancellation as canceled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		transport := provider.NewTransport("test", server.Client(), 0)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		_, err := transport.Get(ctx, server.URL)
		require.Error(t, err)
		require.Equal(t, domain.FailureCanceled, domain.ClassifyFailure(err))
	})
}

func TestStatusError(t *testing.T) {
	err := provider.StatusError("test", http.StatusTooManyRequests, []byte("slow down"))
	require.Equal(t, domain.FailureRateLimited, err.Kind)
	require.ErrorIs(t, err, domain.ErrRateLimited)

	err = provider.StatusError("test", http.StatusInternalServerError, nil)
	require.Equal(t, domain.FailureNetwork, err.Kind)
	require.Contains(t, err.Error(), "status 500")
}
