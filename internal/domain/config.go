package domain

import "time"

// LookupConfig holds the lookup client settings. Provider credentials live in
// the provider packages.
type LookupConfig struct {
	Provider         string        `env:"LOOKUP_PROVIDER"          envDefault:"locationiq"`
	MinQueryLength   int           `env:"LOOKUP_MIN_QUERY_LENGTH"  envDefault:"2"`
	MaxResults       int           `env:"LOOKUP_MAX_RESULTS"       envDefault:"8"`
	CacheTTL         time.Duration `env:"LOOKUP_CACHE_TTL"         envDefault:"5m"`
	CooldownDuration time.Duration `env:"LOOKUP_COOLDOWN"          envDefault:"30s"`
	RequestTimeout   time.Duration `env:"LOOKUP_REQUEST_TIMEOUT"   envDefault:"5s"`
	FailureThreshold int           `env:"LOOKUP_FAILURE_THRESHOLD" envDefault:"1"`

	CacheSweepInterval  time.Duration `env:"LOOKUP_CACHE_SWEEP_INTERVAL"  envDefault:"10m"`
	CacheSweepThreshold int           `env:"LOOKUP_CACHE_SWEEP_THRESHOLD" envDefault:"512"`

	// FallbackPlaces overrides the built-in dataset, e.g. "Paris, France;London, United Kingdom".
	FallbackPlaces []string `env:"LOOKUP_FALLBACK_PLACES" envSeparator:";"`
}

const (
	defaultMaxResults     = 8
	defaultCacheTTL       = 5 * time.Minute
	defaultCooldown       = 30 * time.Second
	defaultRequestTimeout = 5 * time.Second
)

// withDefaults fills zero values that would make the client unusable.
func (c LookupConfig) withDefaults() LookupConfig {
	if c.MinQueryLength < 0 {
		c.MinQueryLength = 0
	}
	if c.MaxResults <= 0 {
		c.MaxResults = defaultMaxResults
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.CooldownDuration <= 0 {
		c.CooldownDuration = defaultCooldown
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	return c
}
