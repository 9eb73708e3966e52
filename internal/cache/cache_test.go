package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[[]string]()

	_, ok := c.Get(ctx, "10")
	assert.False(t, ok)

	c.Set(ctx, "10", []string{"a"})
	v, ok := c.Get(ctx, "10")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, v)
	assert.Equal(t, 1, c.Len())

	c.Clear(ctx)
	_, ok = c.Get(ctx, "10")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[int]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(ctx, "k", i)
			c.Get(ctx, "k")
			if i%5 == 0 {
				c.Clear(ctx)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 1)
}
