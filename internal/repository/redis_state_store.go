package repository

import (
	"context"
	"errors"
	"fmt"

	"RegimePulse/internal/domain/models"
	pkgcache "RegimePulse/pkg/cache"
)

const stateKey = "crisis:state"

// RedisStateStore persists the crisis projection as a single JSON value
// in Redis. The projection has no TTL: it survives restarts until a
// newer save or an explicit clear replaces it.
type RedisStateStore struct {
	cache pkgcache.Service
}

// NewRedisStateStore creates a Redis-backed StateStore.
func NewRedisStateStore(cache pkgcache.Service) *RedisStateStore {
	return &RedisStateStore{cache: cache}
}

func (s *RedisStateStore) Save(ctx context.Context, p *models.StateProjection) error {
	if err := s.cache.Set(ctx, stateKey, p, 0); err != nil {
		return fmt.Errorf("save crisis state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Load(ctx context.Context) (*models.StateProjection, error) {
	var p models.StateProjection
	err := s.cache.Get(ctx, stateKey, &p)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load crisis state: %w", err)
	}
	return &p, nil
}

func (s *RedisStateStore) Clear(ctx context.Context) error {
	if err := s.cache.Delete(ctx, stateKey); err != nil {
		return fmt.Errorf("clear crisis state: %w", err)
	}
	return nil
}
