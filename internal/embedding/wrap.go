package embedding

import (
	"context"

	"github.com/dgraph-io/ristretto"

	"github.com/rcliao/hye-memory/internal/guard"
)

// Guarded runs every Embed call through a guard.
type Guarded struct {
	inner Embedder
	guard *guard.Guard
}

// NewGuarded wraps e with g.
func NewGuarded(e Embedder, g *guard.Guard) *Guarded {
	return &Guarded{inner: e, guard: g}
}

func (g *Guarded) Dims() int { return g.inner.Dims() }

func (g *Guarded) Embed(ctx context.Context, text string) (Vector, error) {
	out, err := g.guard.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return g.inner.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return out.(Vector), nil
}

// Cached memoises embeddings by exact text.
type Cached struct {
	inner Embedder
	cache *ristretto.Cache
}

// NewCached wraps e with a cache holding up to maxEntries vectors.
func NewCached(e Embedder, maxEntries int64) (*Cached, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cached{inner: e, cache: cache}, nil
}

func (c *Cached) Dims() int { return c.inner.Dims() }

func (c *Cached) Embed(ctx context.Context, text string) (Vector, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v.(Vector)), nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, clone(vec), 1)
	return vec, nil
}

// Wait blocks until pending cache writes are applied.
func (c *Cached) Wait() { c.cache.Wait() }

// Close releases the cache.
func (c *Cached) Close() { c.cache.Close() }

func clone(v Vector) Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
