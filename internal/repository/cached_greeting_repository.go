package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sebasr/greetcard-service/internal/metrics"
	"github.com/sebasr/greetcard-service/internal/models"
)

// ErrCacheMiss is returned by a Cache when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value cache with expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedGreetingRepository is a read-through cache in front of another repository.
// Greetings never change after insert, so entries are never invalidated.
type CachedGreetingRepository struct {
	next   GreetingRepository
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedGreetingRepository wraps next with cache
func NewCachedGreetingRepository(next GreetingRepository, cache Cache, ttl time.Duration, logger *zap.Logger) *CachedGreetingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedGreetingRepository{next: next, cache: cache, ttl: ttl, logger: logger}
}

func cacheKey(id string) string {
	return "greeting:" + id
}

// Create stores through to the wrapped repository and warms the cache
func (r *CachedGreetingRepository) Create(ctx context.Context, g *models.Greeting) error {
	if err := r.next.Create(ctx, g); err != nil {
		return err
	}
	r.store(ctx, g)
	return nil
}

// GetByID serves from cache when possible. Cache failures fall through to the store.
func (r *CachedGreetingRepository) GetByID(ctx context.Context, id string) (*models.Greeting, error) {
	data, err := r.cache.Get(ctx, cacheKey(id))
	switch {
	case err == nil:
		var g models.Greeting
		if jsonErr := json.Unmarshal(data, &g); jsonErr == nil {
			metrics.CacheResults.WithLabelValues(metrics.CacheHit).Inc()
			return &g, nil
		}
		metrics.CacheResults.WithLabelValues(metrics.CacheError).Inc()
		r.logger.Warn("discarding undecodable cache entry", zap.String("id", id))
	case errors.Is(err, ErrCacheMiss):
		metrics.CacheResults.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheResults.WithLabelValues(metrics.CacheError).Inc()
		r.logger.Warn("greeting cache read failed", zap.String("id", id), zap.Error(err))
	}

	g, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, g)
	return g, nil
}

// HealthCheck delegates to the wrapped repository when it supports it
func (r *CachedGreetingRepository) HealthCheck(ctx context.Context) error {
	if hc, ok := r.next.(HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (r *CachedGreetingRepository) store(ctx context.Context, g *models.Greeting) {
	data, err := json.Marshal(g)
	if err != nil {
		r.logger.Warn("failed to encode greeting for cache", zap.String("id", g.ID), zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, cacheKey(g.ID), data, r.ttl); err != nil {
		r.logger.Warn("greeting cache write failed", zap.String("id", g.ID), zap.Error(err))
	}
}
