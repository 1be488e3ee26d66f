// Package redis provides the optional shared cache tier for lookup results.
// Entries are hashes holding the JSON encoded suggestions and the time they
// were stored; Redis key expiry enforces the TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/davidbz/placefinder/internal/domain"
	"github.com/davidbz/placefinder/internal/observability"
)

const (
	fieldData     = "data"
	fieldCachedAt = "cached_at"
)

// Config contains Redis connection settings. An empty Addr disables the tier.
type Config struct {
	Addr      string        `env:"REDIS_ADDR"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB"         envDefault:"0"`
	KeyPrefix string        `env:"REDIS_KEY_PREFIX" envDefault:"places:"`
	Timeout   time.Duration `env:"REDIS_TIMEOUT"    envDefault:"250ms"`
}

// Enabled reports whether a Redis address is configured.
func (c Config) Enabled() bool {
	return c.Addr != ""
}

// NewClient creates a go-redis client from config.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
}

// Store implements domain.SharedCache using Redis hashes.
type Store struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	group   singleflight.Group
}

// NewStore creates a new Redis backed shared cache.
func NewStore(client *redis.Client, cfg Config) *Store {
	return &Store{
		client:  client,
		prefix:  cfg.KeyPrefix,
		timeout: cfg.Timeout,
		group:   singleflight.Group{},
	}
}

// Get returns the suggestions stored under key or domain.ErrCacheMiss.
// Concurrent lookups of the same key share one round trip.
func (s *Store) Get(ctx context.Context, key string) ([]domain.Suggestion, error) {
	redisKey := s.prefix + key

	v, err, _ := s.group.Do(redisKey, func() (interface{}, error) {
		return s.load(ctx, redisKey)
	})
	if err != nil {
		return nil, err
	}

	results, _ := v.([]domain.Suggestion)
	out := make([]domain.Suggestion, len(results))
	copy(out, results)
	return out, nil
}

func (s *Store) load(ctx context.Context, redisKey string) ([]domain.Suggestion, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read shared cache: %w", err)
	}

	data, ok := fields[fieldData]
	if !ok {
		return nil, domain.ErrCacheMiss
	}

	var results []domain.Suggestion
	if unmarshalErr := json.Unmarshal([]byte(data), &results); unmarshalErr != nil {
		observability.FromContext(ctx).Warn("dropping undecodable shared cache entry",
			observability.String("key", redisKey),
			observability.Error(unmarshalErr))
		s.client.Del(ctx, redisKey)
		return nil, domain.ErrCacheMiss
	}

	if results == nil {
		results = []domain.Suggestion{}
	}
	return results, nil
}

// Set stores results under key for ttl.
func (s *Store) Set(ctx context.Context, key string, results []domain.Suggestion, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	redisKey := s.prefix + key
	pipe := s.client.Pipeline()

	pipe.HSet(ctx, redisKey,
		fieldData, string(data),
		fieldCachedAt, strconv.FormatInt(time.Now().Unix(), 10),
	)

	if ttl > 0 {
		pipe.Expire(ctx, redisKey, ttl)
	}

	if _, execErr := pipe.Exec(ctx); execErr != nil {
		return fmt.Errorf("failed to write shared cache: %w", execErr)
	}

	observability.FromContext(ctx).Debug("stored results in shared cache",
		observability.String("key", redisKey),
		observability.Int("results", len(results)))
	return nil
}

// CachedAt returns when key was stored, or the zero time if it is absent.
func (s *Store) CachedAt(ctx context.Context, key string) (time.Time, error) {
	raw, err := s.client.HGet(ctx, s.prefix+key, fieldCachedAt).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read cached_at: %w", err)
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cached_at %q: %w", raw, err)
	}
	return time.Unix(ts, 0), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
