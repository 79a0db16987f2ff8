package i18n

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"speakeasy/internal/domain"
)

// BundleStore caches translated bundles keyed by language display name.
// Entries are never invalidated: no TTL, no eviction, no staleness check.
// Concurrent fills for the same language are not de-duplicated; last
// writer wins, which is harmless since results are idempotent per language.
type BundleStore interface {
	Get(ctx context.Context, languageName string) (domain.Bundle, bool)
	Put(ctx context.Context, languageName string, bundle domain.Bundle)
}

// MemoryStore is the default in-process store.
type MemoryStore struct {
	mu      sync.RWMutex
	bundles map[string]domain.Bundle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bundles: make(map[string]domain.Bundle)}
}

func (s *MemoryStore) Get(_ context.Context, languageName string) (domain.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[languageName]
	return b, ok
}

func (s *MemoryStore) Put(_ context.Context, languageName string, bundle domain.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[languageName] = bundle
}

// RedisStore shares bundles across instances. Store errors degrade to
// cache misses; they never fail the caller.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

type RedisConfig struct {
	Addr   string
	DB     int
	Logger *slog.Logger
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB}),
		prefix: "speakeasy:bundle:",
		logger: cfg.Logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, languageName string) (domain.Bundle, bool) {
	data, err := s.client.Get(ctx, s.prefix+languageName).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("redis bundle lookup failed", "language", languageName, "error", err)
		return nil, false
	}
	var b domain.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		s.logger.Warn("corrupt cached bundle", "language", languageName, "error", err)
		return nil, false
	}
	return b, true
}

func (s *RedisStore) Put(ctx context.Context, languageName string, bundle domain.Bundle) {
	data, err := json.Marshal(bundle)
	if err != nil {
		s.logger.Warn("marshal bundle", "language", languageName, "error", err)
		return
	}
	if err := s.client.Set(ctx, s.prefix+languageName, data, 0).Err(); err != nil {
		s.logger.Warn("redis bundle store failed", "language", languageName, "error", err)
	}
}

// Ping checks the Redis connection, for the doctor command.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
