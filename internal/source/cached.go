package source

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/patrickmn/go-cache"
)

const pageCountKey = "pages"

// Cached memoises page rasters and the page count of another renderer.
type Cached struct {
	inner Renderer
	cache *cache.Cache
}

// NewCached wraps r with a cache whose entries expire after ttl.
func NewCached(r Renderer, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Cached{inner: r, cache: cache.New(ttl, 2*ttl)}
}

func (c *Cached) PageCount(ctx context.Context) (int, error) {
	if v, ok := c.cache.Get(pageCountKey); ok {
		return v.(int), nil
	}
	n, err := c.inner.PageCount(ctx)
	if err != nil {
		return 0, err
	}
	c.cache.Set(pageCountKey, n, cache.DefaultExpiration)
	return n, nil
}

func (c *Cached) RenderPage(ctx context.Context, page int, scale float64) (image.Image, error) {
	k := fmt.Sprintf("%d@%g", page, scale)
	if v, ok := c.cache.Get(k); ok {
		return v.(image.Image), nil
	}
	img, err := c.inner.RenderPage(ctx, page, scale)
	if err != nil {
		return nil, err
	}
	c.cache.Set(k, img, cache.DefaultExpiration)
	return img, nil
}

// Invalidate drops every cached entry, for example after the file changed.
func (c *Cached) Invalidate() { c.cache.Flush() }
