package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

const templateTTL = time.Hour

// TemplateCache implements domain.TemplateCache. Each template is stored as
// JSON in the "data" field of template:{itemID}.
type TemplateCache struct {
	c   *Client
	ttl time.Duration
}

// NewTemplateCache creates a TemplateCache backed by the given Client.
func NewTemplateCache(c *Client) *TemplateCache {
	return &TemplateCache{c: c, ttl: templateTTL}
}

func (tc *TemplateCache) key(itemID int64) string {
	return tc.c.Key("template:" + strconv.FormatInt(itemID, 10))
}

// Set stores t with a one hour TTL.
func (tc *TemplateCache) Set(ctx context.Context, t domain.ItemTemplate) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: marshal template %d: %w", t.ID, err)
	}
	key := tc.key(t.ID)
	pipe := tc.c.Underlying().TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, tc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set template %d: %w", t.ID, err)
	}
	return nil
}

// Get returns domain.ErrNotFound on a cache miss.
func (tc *TemplateCache) Get(ctx context.Context, itemID int64) (domain.ItemTemplate, error) {
	data, err := tc.c.Underlying().HGet(ctx, tc.key(itemID), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ItemTemplate{}, domain.ErrNotFound
		}
		return domain.ItemTemplate{}, fmt.Errorf("redis: get template %d: %w", itemID, err)
	}
	var t domain.ItemTemplate
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.ItemTemplate{}, fmt.Errorf("redis: unmarshal template %d: %w", itemID, err)
	}
	return t, nil
}

func (tc *TemplateCache) Invalidate(ctx context.Context, itemID int64) error {
	if err := tc.c.Underlying().Del(ctx, tc.key(itemID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate template %d: %w", itemID, err)
	}
	return nil
}

var _ domain.TemplateCache = (*TemplateCache)(nil)
