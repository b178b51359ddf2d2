package runner

import (
	"context"
	"log/slog"

	"github.com/use-agent/renderscraper/cache"
	"github.com/use-agent/renderscraper/models"
)

// Cached serves recent successful results from memory and forwards
// everything else to the wrapped runner. Failures and price-less results
// are never cached.
type Cached struct {
	next  Runner
	store *cache.Cache
}

func NewCached(next Runner, store *cache.Cache) *Cached {
	return &Cached{next: next, store: store}
}

func (c *Cached) Run(ctx context.Context, url string) (models.ProductResult, error) {
	key := cache.Key(url)
	if res, ok := c.store.Get(key); ok {
		slog.Debug("cache hit", "url", url)
		return res, nil
	}

	res, err := c.next.Run(ctx, url)
	if err == nil && !res.Failed() && res.Price > 0 && !models.IsBlockTitle(res.Title) {
		c.store.Set(key, res)
	}
	return res, err
}
