package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/dgraph-io/ristretto"
)

// CachedClient wraps a Client with an LRU cache keyed by content hash.
// A fixed embedding model is deterministic for a given input, so serving a
// cached vector is indistinguishable from re-embedding.
type CachedClient struct {
	inner Client
	cache *ristretto.Cache
}

// NewCachedClient wraps inner with a cache holding up to maxEntries vectors.
func NewCachedClient(inner Client, maxEntries int64) (*CachedClient, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedClient{inner: inner, cache: cache}, nil
}

// Dimensions returns the inner client's vector length.
func (c *CachedClient) Dimensions() int { return c.inner.Dimensions() }

// Embed returns a cached vector when the exact text was embedded before,
// otherwise delegates to the inner client. Failures are never cached.
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentKey(text)
	if v, ok := c.cache.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec, 1)
	return vec, nil
}

// Wait blocks until pending cache writes are applied. Ristretto admits
// entries asynchronously; tests call this to make Set visible.
func (c *CachedClient) Wait() {
	c.cache.Wait()
}

// Close releases cache resources.
func (c *CachedClient) Close() {
	c.cache.Close()
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
