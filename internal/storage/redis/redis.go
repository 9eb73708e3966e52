package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	pkgredis "tariff-engine/pkg/redis"
)

const keyPrefix = "pricing:"

// Client is the subset of pkg/redis used by the store.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Store is a cache.Store shared between processes through Redis. Values are
// JSON encoded; entries never expire and are dropped only by Clear.
type Store[T any] struct {
	client Client
	kind   string
	logger *zap.Logger
}

// NewStore creates a store whose keys live under pricing:<kind>:.
func NewStore[T any](client Client, kind string, logger *zap.Logger) *Store[T] {
	return &Store[T]{client: client, kind: kind, logger: logger}
}

func (s *Store[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T
	data, err := s.client.Get(ctx, s.buildKey(key))
	if errors.Is(err, pkgredis.ErrNil) {
		return value, false
	}
	if err != nil {
		s.logger.Warn("Pricing cache read failed",
			zap.String("kind", s.kind),
			zap.String("key", key),
			zap.Error(err))
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.Warn("Pricing cache entry unreadable",
			zap.String("kind", s.kind),
			zap.String("key", key),
			zap.Error(err))
		return value, false
	}
	return value, true
}

func (s *Store[T]) Set(ctx context.Context, key string, value T) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Pricing cache marshal failed",
			zap.String("kind", s.kind),
			zap.String("key", key),
			zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.buildKey(key), data, 0); err != nil {
		s.logger.Warn("Pricing cache write failed",
			zap.String("kind", s.kind),
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *Store[T]) Clear(ctx context.Context) {
	if err := s.client.DeleteByPrefix(ctx, s.prefix()); err != nil {
		s.logger.Error("Pricing cache clear failed",
			zap.String("kind", s.kind),
			zap.Error(err))
	}
}

func (s *Store[T]) prefix() string {
	return fmt.Sprintf("%s%s:", keyPrefix, s.kind)
}

func (s *Store[T]) buildKey(key string) string {
	return s.prefix() + key
}
