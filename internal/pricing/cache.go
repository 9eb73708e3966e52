package pricing

import (
	"context"

	"go.uber.org/zap"

	"tariff-engine/internal/cache"
	"tariff-engine/internal/catalog"
	"tariff-engine/internal/discount"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/markup"
	"tariff-engine/internal/promotion"
	redisstore "tariff-engine/internal/storage/redis"
)

// Cache holds the per-product data of a pricing session. Entries never
// expire; Clear drops all five stores at once.
type Cache struct {
	Tariffs    cache.Store[catalog.Tariff]
	Formulas   cache.Store[formula.Catalog]
	Discounts  cache.Store[discount.Table]
	Promotions cache.Store[promotion.Lookup]
	Markups    cache.Store[markup.Table]
}

// NewMemoryCache returns a cache private to this process.
func NewMemoryCache() *Cache {
	return &Cache{
		Tariffs:    cache.NewMemory[catalog.Tariff](),
		Formulas:   cache.NewMemory[formula.Catalog](),
		Discounts:  cache.NewMemory[discount.Table](),
		Promotions: cache.NewMemory[promotion.Lookup](),
		Markups:    cache.NewMemory[markup.Table](),
	}
}

// NewRedisCache returns a cache shared by every process using client.
func NewRedisCache(client redisstore.Client, logger *zap.Logger) *Cache {
	return &Cache{
		Tariffs:    redisstore.NewStore[catalog.Tariff](client, "tariff", logger),
		Formulas:   redisstore.NewStore[formula.Catalog](client, "formula", logger),
		Discounts:  redisstore.NewStore[discount.Table](client, "discount", logger),
		Promotions: redisstore.NewStore[promotion.Lookup](client, "promotion", logger),
		Markups:    redisstore.NewStore[markup.Table](client, "markup", logger),
	}
}

// Clear invalidates every store. Call it after markup or pricing rules
// change.
func (c *Cache) Clear(ctx context.Context) {
	c.Tariffs.Clear(ctx)
	c.Formulas.Clear(ctx)
	c.Discounts.Clear(ctx)
	c.Promotions.Clear(ctx)
	c.Markups.Clear(ctx)
}

// cached returns the value under key, loading and storing it on a miss.
// Failed loads are not cached.
func cached[T any](ctx context.Context, store cache.Store[T], key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := store.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	store.Set(ctx, key, v)
	return v, nil
}
