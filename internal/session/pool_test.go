package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/session"
)

func newCountingFactory() (session.Factory, *int) {
	created := 0
	return func() *domain.LookupClient {
		created++
		return domain.NewLookupClient(domain.LookupConfig{}, domain.LookupDeps{})
	}, &created
}

func TestPool_Get(t *testing.T) {
	t.Run("should reuse the client of a session", func(t *testing.T) {
		factory, created := newCountingFactory()
		pool := session.NewPool(session.Config{IdleTTL: time.Minute}, factory)

		first := pool.Get("abc")
		second := pool.Get("abc")

		require.Same(t, first, second)
		require.Equal(t, 1, *created)
		require.Equal(t, 1, pool.Len())
	})

	t.Run("should isolate sessions", func(t *testing.T) {
		factory, created := newCountingFactory()
		pool := session.NewPool(session.Config{IdleTTL: time.Minute}, factory)

		require.NotSame(t, pool.Get("a"), pool.Get("b"))
		require.Equal(t, 2, *created)
	})

	t.Run("should create a new client after the session expired", func(t *testing.T) {
		factory, created := newCountingFactory()
		pool := session.NewPool(session.Config{IdleTTL: 20 * time.Millisecond}, factory)

		first := pool.Get("abc")
		time.Sleep(40 * time.Millisecond)
		second := pool.Get("abc")

		require.NotSame(t, first, second)
		require.Equal(t, 2, *created)
	})

	t.Run("should create one client under concurrent access", func(t *testing.T) {
		factory, created := newCountingFactory()
		pool := session.NewPool(session.Config{}, factory)

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				pool.Get("shared")
			}()
		}
		wg.Wait()

		require.Equal(t, 1, *created)
	})
}

func TestPool_Transient(t *testing.T) {
	factory, created := newCountingFactory()
	pool := session.NewPool(session.Config{IdleTTL: time.Minute}, factory)

	first := pool.Transient()
	second := pool.Transient()

	require.NotSame(t, first, second)
	require.Equal(t, 2, *created)
	require.Equal(t, 0, pool.Len())
}
