package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davidbz/placefinder/internal/cache/memory"
	"github.com/davidbz/placefinder/internal/cache/redis"
	"github.com/davidbz/placefinder/internal/config"
	"github.com/davidbz/placefinder/internal/domain"
	apihttp "github.com/davidbz/placefinder/internal/http"
	"github.com/davidbz/placefinder/internal/http/middleware"
	"github.com/davidbz/placefinder/internal/observability"
	"github.com/davidbz/placefinder/internal/provider/echo"
	"github.com/davidbz/placefinder/internal/provider/locationiq"
	"github.com/davidbz/placefinder/internal/provider/mapbox"
	"github.com/davidbz/placefinder/internal/provider/registry"
	"github.com/davidbz/placefinder/internal/routing"
	"github.com/davidbz/placefinder/internal/session"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *apihttp.Server, cfg *config.ServerConfig) error {
		return run(server, time.Duration(cfg.ShutdownTimeout)*time.Second)
	})
	if err != nil {
		log.Fatalf("Failed to run application: %v", err)
	}
}

func run(server *apihttp.Server, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(observability.NewMetricsRegistry); err != nil {
		log.Fatalf("Failed to provide metrics registry: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger, reg *prometheus.Registry) (domain.EventPublisher, error) {
		bus, err := observability.NewEventBus(logger, reg)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Outbound HTTP client shared by the providers
	if err := container.Provide(func(cfg *domain.LookupConfig) *http.Client {
		return &http.Client{Timeout: cfg.RequestTimeout}
	}); err != nil {
		log.Fatalf("Failed to provide HTTP client: %v", err)
	}

	// Provider Registry
	if err := container.Provide(func() domain.ProviderRegistry {
		return registry.NewRegistry()
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Providers
	if err := container.Provide(func(cfg *locationiq.Config, client *http.Client) (*locationiq.Provider, error) {
		if cfg.APIKey == "" {
			return nil, domain.ErrProviderNotConfigured
		}
		return locationiq.NewProvider(*cfg, client)
	}); err != nil {
		log.Fatalf("Failed to provide LocationIQ provider: %v", err)
	}
	if err := container.Provide(func(cfg *mapbox.Config, client *http.Client) (*mapbox.Provider, error) {
		if cfg.AccessToken == "" {
			return nil, domain.ErrProviderNotConfigured
		}
		return mapbox.NewProvider(*cfg, client)
	}); err != nil {
		log.Fatalf("Failed to provide Mapbox provider: %v", err)
	}

	if err := container.Provide(func(cfg *echo.Config) (*echo.Provider, error) {
		if !cfg.Enabled {
			return nil, domain.ErrProviderNotConfigured
		}
		return echo.NewProvider(*cfg), nil
	}); err != nil {
		log.Fatalf("Failed to provide echo provider: %v", err)
	}

	// Register providers with registry (invoked for side effects).
	// Each provider is optional, so each registration is invoked on its own.
	registerOptional(container, "LocationIQ", func(reg domain.ProviderRegistry, p *locationiq.Provider) error {
		return reg.Register(context.Background(), p)
	})
	registerOptional(container, "Mapbox", func(reg domain.ProviderRegistry, p *mapbox.Provider) error {
		return reg.Register(context.Background(), p)
	})
	registerOptional(container, "echo", func(reg domain.ProviderRegistry, p *echo.Provider) error {
		return reg.Register(context.Background(), p)
	})

	// Routing
	if err := container.Provide(routing.NewSelector); err != nil {
		log.Fatalf("Failed to provide provider selector: %v", err)
	}

	// Shared cache tier
	if err := container.Provide(provideSharedCache); err != nil {
		log.Fatalf("Failed to provide shared cache: %v", err)
	}

	// Domain Services
	if err := container.Provide(provideSessionPool); err != nil {
		log.Fatalf("Failed to provide session pool: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.NewIPRateLimiter); err != nil {
		log.Fatalf("Failed to provide rate limiter: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(apihttp.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(apihttp.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

func registerOptional(container *dig.Container, name string, register interface{}) {
	if err := container.Invoke(register); err != nil {
		// ErrProviderNotConfigured is expected for optional providers.
		if !errors.Is(err, domain.ErrProviderNotConfigured) {
			log.Fatalf("Failed to register %s provider: %v", name, err)
		}
	}
}

// provideSharedCache returns the Redis tier, or nil when it is disabled.
func provideSharedCache(cfg *redis.Config) domain.SharedCache {
	if !cfg.Enabled() {
		return nil
	}

	store := redis.NewStore(redis.NewClient(*cfg), *cfg)

	logger := observability.FromContext(context.Background())
	if err := store.Ping(context.Background()); err != nil {
		logger.Warn("redis unreachable at startup, shared cache will retry per request",
			observability.String("addr", cfg.Addr),
			observability.Error(err))
	} else {
		logger.Info("shared cache enabled", observability.String("addr", cfg.Addr))
	}

	return store
}

// provideSessionPool wires the lookup collaborators shared by every session
// and returns the pool that builds one client per session.
func provideSessionPool(
	cfg *domain.LookupConfig,
	sessionCfg *session.Config,
	selector *routing.Selector,
	shared domain.SharedCache,
	events domain.EventPublisher,
) (*session.Pool, error) {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	provider, err := selector.Select(ctx, cfg.Provider)
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		logger.Warn("no geocoding provider configured, serving fallback suggestions only")
		provider = nil
	case err != nil:
		return nil, fmt.Errorf("failed to select provider: %w", err)
	default:
		logger.Info("geocoding provider selected", observability.String("provider", provider.Name()))
	}

	cache := memory.NewQueryCache(memory.Config{
		TTL:            cfg.CacheTTL,
		SweepInterval:  cfg.CacheSweepInterval,
		SweepThreshold: cfg.CacheSweepThreshold,
	}, time.Now)
	breaker := domain.NewBreaker(cfg.CooldownDuration, cfg.FailureThreshold, time.Now)
	fallback := domain.NewFallbackMatcherFromLabels(cfg.FallbackPlaces)

	lookupCfg := *cfg
	return session.NewPool(*sessionCfg, func() *domain.LookupClient {
		return domain.NewLookupClient(lookupCfg, domain.LookupDeps{
			Provider:    provider,
			Cache:       cache,
			SharedCache: shared,
			Breaker:     breaker,
			Fallback:    fallback,
			Events:      events,
		})
	}), nil
}
