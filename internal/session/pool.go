// Package session keeps one lookup client per caller session so that a new
// keystroke only supersedes requests from the same caller.
package session

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/davidbz/placefinder/internal/domain"
)

// Config contains session settings.
type Config struct {
	Header  string        `env:"SESSION_HEADER"   envDefault:"X-Session-Id"`
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"10m"`
}

const defaultIdleTTL = 10 * time.Minute

// Factory builds a lookup client for a new session.
type Factory func() *domain.LookupClient

// Pool hands out lookup clients keyed by session ID. Idle sessions expire
// after the configured TTL.
type Pool struct {
	mu      sync.Mutex
	clients *gocache.Cache
	ttl     time.Duration
	factory Factory
}

// NewPool creates a new session pool.
func NewPool(cfg Config, factory Factory) *Pool {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}

	return &Pool{
		mu:      sync.Mutex{},
		clients: gocache.New(ttl, ttl),
		ttl:     ttl,
		factory: factory,
	}
}

// Get returns the client for id, creating it on first use. Every access
// pushes the session's expiry forward.
func (p *Pool) Get(id string) *domain.LookupClient {
	p.mu.Lock()
	defer p.mu.Unlock()

	if raw, found := p.clients.Get(id); found {
		if client, ok := raw.(*domain.LookupClient); ok {
			p.clients.Set(id, client, p.ttl)
			return client
		}
	}

	client := p.factory()
	p.clients.Set(id, client, p.ttl)
	return client
}

// Transient returns a client that is not kept in the pool. It serves callers
// that have not presented a session id yet.
func (p *Pool) Transient() *domain.LookupClient {
	return p.factory()
}

// Len returns the number of live sessions.
func (p *Pool) Len() int {
	return p.clients.ItemCount()
}
