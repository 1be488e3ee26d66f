package routing

import (
	"context"
	"fmt"

	"github.com/davidbz/placefinder/internal/domain"
)

// Selector picks the provider that serves lookups.
type Selector struct {
	registry domain.ProviderRegistry
}

// NewSelector creates a new selector.
func NewSelector(registry domain.ProviderRegistry) *Selector {
	return &Selector{
		registry: registry,
	}
}

// Select returns the preferred provider if it is registered, otherwise the
// first registered provider by name. It returns ErrProviderNotConfigured
// when nothing is registered.
func (s *Selector) Select(ctx context.Context, preferred string) (domain.Provider, error) {
	if preferred != "" {
		if provider, err := s.registry.Get(ctx, preferred); err == nil {
			return provider, nil
		}
	}

	names, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}

	for _, name := range names {
		provider, getErr := s.registry.Get(ctx, name)
		if getErr != nil {
			continue
		}
		return provider, nil
	}

	return nil, domain.ErrProviderNotConfigured
}
