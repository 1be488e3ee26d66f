// Package echo provides a testing provider that echoes the query back as a
// place. It implements the domain.Provider interface without making external
// API calls, providing deterministic responses for development and demos.
package echo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/observability"
)

const (
	providerName = "echo"
	echoCountry  = "Echoland"
	echoCode     = "XE"
)

// Config contains echo provider settings.
type Config struct {
	Enabled bool          `env:"ECHO_ENABLED" envDefault:"false"`
	Delay   time.Duration `env:"ECHO_DELAY"   envDefault:"0s"`
}

// Provider implements the domain.Provider interface for echo testing.
type Provider struct {
	delay time.Duration
}

// NewProvider creates a new echo provider.
// No credentials are required as this provider operates entirely in-memory.
func NewProvider(cfg Config) *Provider {
	return &Provider{
		delay: cfg.Delay,
	}
}

// Search returns up to req.Limit places derived from the query. The
// configured delay simulates network latency and honors cancellation.
func (p *Provider) Search(ctx context.Context, req *domain.ProviderRequest) ([]domain.PlaceRecord, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	name := titleCase(strings.TrimSpace(req.Query))
	if name == "" {
		return []domain.PlaceRecord{}, nil
	}

	variants := []string{name, name + " City", "North " + name}
	limit := min(max(req.Limit, 0), len(variants))

	records := make([]domain.PlaceRecord, 0, limit)
	for _, v := range variants[:limit] {
		records = append(records, domain.PlaceRecord{
			DisplayName: fmt.Sprintf("%s, %s", v, echoCountry),
			City:        v,
			Country:     echoCountry,
			CountryCode: echoCode,
		})
	}

	observability.FromContext(ctx).Debug("echo search completed",
		observability.Int("results", len(records)))

	return records, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return providerName
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
