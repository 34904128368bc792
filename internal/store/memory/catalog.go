package memory

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var (
	_ domain.Catalog     = (*Catalog)(nil)
	_ domain.ItemFactory = (*ItemFactory)(nil)
)

// Catalog is a fixed set of item templates.
type Catalog struct {
	mu         sync.RWMutex
	templates  map[int64]domain.ItemTemplate
	properties map[int64][]int64
}

// NewCatalog creates a Catalog holding templates.
func NewCatalog(templates ...domain.ItemTemplate) *Catalog {
	c := &Catalog{
		templates:  make(map[int64]domain.ItemTemplate, len(templates)),
		properties: make(map[int64][]int64),
	}
	for _, t := range templates {
		c.templates[t.ID] = t
	}
	return c
}

// SetRandomProperties registers the random property IDs an item can roll.
func (c *Catalog) SetRandomProperties(itemID int64, ids ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.properties[itemID] = slices.Clone(ids)
}

func (c *Catalog) GetItemTemplate(_ context.Context, itemID int64) (domain.ItemTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[itemID]
	if !ok {
		return domain.ItemTemplate{}, fmt.Errorf("memory: template %d: %w", itemID, domain.ErrNotFound)
	}
	return t, nil
}

func (c *Catalog) ListTemplates(_ context.Context) ([]domain.ItemTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ItemTemplate, 0, len(c.templates))
	for _, id := range slices.Sorted(maps.Keys(c.templates)) {
		out = append(out, c.templates[id])
	}
	return out, nil
}

func (c *Catalog) RandomPropertyID(_ context.Context, itemID int64) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.properties[itemID]
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[rand.IntN(len(ids))], nil
}

// ItemFactory hands out sequential GUIDs.
type ItemFactory struct {
	next atomic.Int64
}

// NewItemFactory creates a factory whose first GUID is start+1.
func NewItemFactory(start int64) *ItemFactory {
	f := &ItemFactory{}
	f.next.Store(start)
	return f
}

func (f *ItemFactory) CreateItem(_ context.Context, itemID int64, count int, owner int64) (domain.Item, error) {
	if count < 1 {
		return domain.Item{}, fmt.Errorf("memory: create item %d: count %d", itemID, count)
	}
	return domain.Item{
		GUID:   f.next.Add(1),
		ItemID: itemID,
		Owner:  owner,
		Count:  count,
	}, nil
}
