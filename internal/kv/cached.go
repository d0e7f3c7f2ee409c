package kv

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached fronts a Store with an LRU of recently read or written values.
// Writes go to the backing store first; the cache is only updated once the
// write succeeds.
type Cached struct {
	next  Store
	cache *lru.Cache[string, string]
}

func NewCached(next Store, size int) (*Cached, error) {
	if size <= 0 {
		size = 16
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, true, nil
	}
	v, ok, err := c.next.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	c.cache.Add(key, v)
	return v, true, nil
}

func (c *Cached) Set(ctx context.Context, key, value string) error {
	if err := c.next.Set(ctx, key, value); err != nil {
		c.cache.Remove(key)
		return err
	}
	c.cache.Add(key, value)
	return nil
}
