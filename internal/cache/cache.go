package cache

import (
	"context"
	"sync"
)

// Store is a keyed cache without expiry. Entries only disappear on Clear.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
	Clear(ctx context.Context)
}

// Memory is an in-process Store. Values are shared read-only between
// callers and never mutated in place.
type Memory[T any] struct {
	mu sync.RWMutex
	m  map[string]T
}

func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{m: make(map[string]T)}
}

func (c *Memory[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *Memory[T]) Set(_ context.Context, key string, value T) {
	c.mu.Lock()
	c.m[key] = value
	c.mu.Unlock()
}

// Clear swaps in a fresh map.
func (c *Memory[T]) Clear(_ context.Context) {
	c.mu.Lock()
	c.m = make(map[string]T)
	c.mu.Unlock()
}

// Len is the number of cached entries.
func (c *Memory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
