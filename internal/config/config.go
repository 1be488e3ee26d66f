package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/placefinder/internal/cache/redis"
	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/provider/echo"
	"github.com/davidbz/placefinder/internal/provider/locationiq"
	"github.com/davidbz/placefinder/internal/provider/mapbox"
	"github.com/davidbz/placefinder/internal/session"
)

// Config represents the placefinder configuration.
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Lookup     domain.LookupConfig
	LocationIQ locationiq.Config
	Mapbox     mapbox.Config
	Echo       echo.Config
	Redis      redis.Config
	Session    session.Config
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int `env:"SERVER_PORT"             envDefault:"8080"`
	ReadTimeout     int `env:"SERVER_READ_TIMEOUT"     envDefault:"30"`
	WriteTimeout    int `env:"SERVER_WRITE_TIMEOUT"    envDefault:"30"`
	ShutdownTimeout int `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,X-Session-Id"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// RateLimitConfig bounds inbound request rate per client address.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out

	Server     *ServerConfig
	CORS       *CORSConfig
	RateLimit  *RateLimitConfig
	Lookup     *domain.LookupConfig
	LocationIQ *locationiq.Config
	Mapbox     *mapbox.Config
	Echo       *echo.Config
	Redis      *redis.Config
	Session    *session.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		Out:        dig.Out{},
		Server:     &cfg.Server,
		CORS:       &cfg.CORS,
		RateLimit:  &cfg.RateLimit,
		Lookup:     &cfg.Lookup,
		LocationIQ: &cfg.LocationIQ,
		Mapbox:     &cfg.Mapbox,
		Echo:       &cfg.Echo,
		Redis:      &cfg.Redis,
		Session:    &cfg.Session,
	}
}
