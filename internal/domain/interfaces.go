package domain

import (
	"context"
	"time"
)

// Provider represents any upstream geocoding API.
type Provider interface {
	// Search returns raw place records for a partial query.
	Search(ctx context.Context, req *ProviderRequest) ([]PlaceRecord, error)

	// Name returns the provider identifier.
	Name() string
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider Provider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (Provider, error)

	// List returns all registered provider names.
	List(ctx context.Context) ([]string, error)
}

// QueryCache is the in-process, TTL-bounded memo of normalized results.
type QueryCache interface {
	// Get returns the results stored under key if they are still fresh.
	Get(key string) ([]Suggestion, bool)

	// Set stores results under key, replacing any previous entry.
	Set(key string, results []Suggestion)

	// Sweep evicts expired entries and returns how many were removed.
	Sweep() int
}

// SharedCache is an optional cache tier shared between processes.
type SharedCache interface {
	// Get returns ErrCacheMiss when nothing is stored under key.
	Get(ctx context.Context, key string) ([]Suggestion, error)

	// Set stores results under key for ttl.
	Set(ctx context.Context, key string, results []Suggestion, ttl time.Duration) error
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// Clock returns the current time. Tests substitute a controllable one.
type Clock func() time.Time
