package domain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/davidbz/placefinder/internal/observability"
)

// Lookup event types.
const (
	EventCacheHit        = "lookup.cache_hit"
	EventCacheMiss       = "lookup.cache_miss"
	EventSharedCacheHit  = "lookup.shared_cache_hit"
	EventFallbackServed  = "lookup.fallback_served"
	EventProviderSuccess = "lookup.provider_success"
	EventProviderFailure = "lookup.provider_failure"
	EventSuperseded      = "lookup.superseded"
	EventBreakerOpened   = "lookup.breaker_opened"
	EventBreakerClosed   = "lookup.breaker_closed"
	EventBreakerReset    = "lookup.breaker_reset"
)

// LookupDeps are the collaborators of a LookupClient. Everything except
// Provider and Cache may be shared between clients; a nil Provider puts the
// client in permanent fallback mode and a nil Cache disables caching.
type LookupDeps struct {
	Provider    Provider
	Cache       QueryCache
	SharedCache SharedCache
	Breaker     *Breaker
	Fallback    *FallbackMatcher
	Events      EventPublisher
}

// LookupClient turns partial user input into place suggestions.
// One client serves one logical caller: a new search cancels the previous one.
type LookupClient struct {
	cfg         LookupConfig
	provider    Provider
	cache       QueryCache
	shared      SharedCache
	breaker     *Breaker
	fallback    *FallbackMatcher
	events      EventPublisher
	coordinator *Coordinator

	// mu guards the request ids below. It is never held while calling into
	// the coordinator.
	mu          sync.Mutex
	lastReq     uint64
	trialHolder uint64 // request id holding the breaker's trial permit, 0 if none
}

// NewLookupClient creates a new lookup client (DI constructor).
func NewLookupClient(cfg LookupConfig, deps LookupDeps) *LookupClient {
	cfg = cfg.withDefaults()

	breaker := deps.Breaker
	if breaker == nil {
		breaker = NewBreaker(cfg.CooldownDuration, cfg.FailureThreshold, nil)
	}

	fallback := deps.Fallback
	if fallback == nil {
		fallback = NewFallbackMatcherFromLabels(cfg.FallbackPlaces)
	}

	return &LookupClient{
		cfg:         cfg,
		provider:    deps.Provider,
		cache:       deps.Cache,
		shared:      deps.SharedCache,
		breaker:     breaker,
		fallback:    fallback,
		events:      deps.Events,
		coordinator: NewCoordinator(cfg.RequestTimeout),
	}
}

// Search returns suggestions for query. It never fails: provider problems
// degrade to the fallback dataset and the worst case is an empty slice.
func (c *LookupClient) Search(ctx context.Context, query string, opts SearchOptions) []Suggestion {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < c.cfg.MinQueryLength || trimmed == "" {
		return []Suggestion{}
	}

	limit := c.effectiveLimit(opts.Limit)
	key := CacheKey(trimmed, opts.Scope)
	logger := observability.FromContext(ctx).With(observability.String("cache_key", key))

	if c.cache != nil {
		if hit, ok := c.cache.Get(key); ok {
			c.publish(ctx, EventCacheHit, map[string]interface{}{"key": key, "results": len(hit)})
			return truncate(hit, limit)
		}
		c.publish(ctx, EventCacheMiss, map[string]interface{}{"key": key})
	}

	if hit, ok := c.sharedGet(ctx, key); ok {
		return truncate(hit, limit)
	}

	if c.provider == nil {
		return c.serveFallback(ctx, trimmed, limit, "no provider configured")
	}

	reqID, allowed := c.admit()
	if !allowed {
		return c.serveFallback(ctx, trimmed, limit, "provider unavailable")
	}

	var (
		results []Suggestion
		failure FailureKind
	)

	req := &ProviderRequest{
		Query: trimmed,
		Scope: strings.TrimSpace(opts.Scope),
		Limit: c.cfg.MaxResults,
	}

	err := c.coordinator.Issue(ctx,
		func(callCtx context.Context) ([]PlaceRecord, error) {
			return c.provider.Search(callCtx, req)
		},
		func(records []PlaceRecord, callErr error) {
			failure = ClassifyFailure(callErr)
			switch {
			case failure == FailureNone:
				c.releaseTrial(reqID)
				results = NormalizeAll(records, c.cfg.MaxResults)
				if c.cache != nil {
					c.cache.Set(key, results)
				}
				if c.breaker.RecordSuccess() {
					c.publish(ctx, EventBreakerClosed, map[string]interface{}{"provider": c.provider.Name()})
				}
			case !failure.Counts():
				if c.releaseTrial(reqID) {
					c.breaker.Abandon()
				}
			default:
				c.releaseTrial(reqID)
				logger.Warn("provider call failed",
					observability.String("failure", failure.String()),
					observability.Error(callErr))
				if c.breaker.RecordFailure(failure) {
					c.publish(ctx, EventBreakerOpened, map[string]interface{}{
						"provider": c.provider.Name(),
						"failure":  failure.String(),
					})
				}
			}
		},
	)
	if errors.Is(err, ErrSuperseded) {
		// A newer request that took over the trial permit owns it now.
		if c.releaseTrial(reqID) {
			c.breaker.Abandon()
		}
		c.publish(ctx, EventSuperseded, map[string]interface{}{"key": key})
		return []Suggestion{}
	}

	switch failure {
	case FailureNone:
		c.publish(ctx, EventProviderSuccess, map[string]interface{}{
			"provider": c.provider.Name(),
			"results":  len(results),
		})
		c.sharedSet(ctx, key, results)
		return truncate(results, limit)
	case FailureCanceled:
		return []Suggestion{}
	default:
		c.publish(ctx, EventProviderFailure, map[string]interface{}{
			"provider": c.provider.Name(),
			"failure":  failure.String(),
		})
		return c.serveFallback(ctx, trimmed, limit, failure.String())
	}
}

// admit decides whether a new request may reach the provider. While this
// client's own earlier request holds the half-open trial permit, the new
// request takes the permit over so that it supersedes the old one instead of
// being turned away.
func (c *LookupClient) admit() (reqID uint64, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastReq++
	reqID = c.lastReq

	if c.trialHolder != 0 {
		c.trialHolder = reqID
		return reqID, true
	}

	allowed, trial := c.breaker.Allow()
	if trial {
		c.trialHolder = reqID
	}
	return reqID, allowed
}

// releaseTrial clears the trial permit if reqID still holds it and reports
// whether it did.
func (c *LookupClient) releaseTrial(reqID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.trialHolder != reqID {
		return false
	}
	c.trialHolder = 0
	return true
}

// Degraded reports whether suggestions currently come from the fallback dataset.
func (c *LookupClient) Degraded() bool {
	return c.provider == nil || c.breaker.IsOpen()
}

// Retry closes the breaker so the next search tries the provider again.
func (c *LookupClient) Retry(ctx context.Context) {
	c.breaker.Reset()
	c.publish(ctx, EventBreakerReset, nil)
}

// Breaker returns the breaker guarding the provider.
func (c *LookupClient) Breaker() *Breaker {
	return c.breaker
}

// ProviderName returns the active provider name, or "" in fallback-only mode.
func (c *LookupClient) ProviderName() string {
	if c.provider == nil {
		return ""
	}
	return c.provider.Name()
}

func (c *LookupClient) serveFallback(ctx context.Context, query string, limit int, reason string) []Suggestion {
	results := c.fallback.Match(query, limit)
	c.publish(ctx, EventFallbackServed, map[string]interface{}{
		"reason":  reason,
		"results": len(results),
	})
	return results
}

func (c *LookupClient) sharedGet(ctx context.Context, key string) ([]Suggestion, bool) {
	if c.shared == nil {
		return nil, false
	}

	results, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			observability.FromContext(ctx).Warn("shared cache get failed, continuing without it",
				observability.Error(err))
		}
		return nil, false
	}

	if c.cache != nil {
		c.cache.Set(key, results)
	}
	c.publish(ctx, EventSharedCacheHit, map[string]interface{}{"key": key, "results": len(results)})
	return results, true
}

func (c *LookupClient) sharedSet(ctx context.Context, key string, results []Suggestion) {
	if c.shared == nil {
		return
	}

	if err := c.shared.Set(ctx, key, results, c.cfg.CacheTTL); err != nil {
		observability.FromContext(ctx).Warn("failed to store in shared cache",
			observability.Error(err))
	}
}

func (c *LookupClient) effectiveLimit(requested int) int {
	if requested > 0 && requested < c.cfg.MaxResults {
		return requested
	}
	return c.cfg.MaxResults
}

func (c *LookupClient) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if c.events == nil {
		return
	}
	c.events.Publish(ctx, eventType, data)
}

// truncate returns a copy of at most limit results so callers never alias cached slices.
func truncate(results []Suggestion, limit int) []Suggestion {
	n := min(len(results), limit)
	out := make([]Suggestion, n)
	copy(out, results[:n])
	return out
}
