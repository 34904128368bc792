package service

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var _ domain.Catalog = (*CachedCatalog)(nil)

// CachedCatalog serves template lookups from a cache and falls back to the
// underlying catalog on a miss.
type CachedCatalog struct {
	domain.Catalog
	cache  domain.TemplateCache
	logger *slog.Logger
}

// NewCachedCatalog wraps catalog with cache.
func NewCachedCatalog(catalog domain.Catalog, cache domain.TemplateCache, logger *slog.Logger) *CachedCatalog {
	return &CachedCatalog{Catalog: catalog, cache: cache, logger: logger}
}

// GetItemTemplate checks the cache first and back-fills it on a miss.
// Cache failures never fail the lookup.
func (c *CachedCatalog) GetItemTemplate(ctx context.Context, itemID int64) (domain.ItemTemplate, error) {
	if t, err := c.cache.Get(ctx, itemID); err == nil {
		return t, nil
	}
	t, err := c.Catalog.GetItemTemplate(ctx, itemID)
	if err != nil {
		return domain.ItemTemplate{}, err
	}
	if err := c.cache.Set(ctx, t); err != nil {
		c.logger.WarnContext(ctx, "template cache set failed",
			slog.Int64("item_id", itemID),
			slog.String("error", err.Error()),
		)
	}
	return t, nil
}
