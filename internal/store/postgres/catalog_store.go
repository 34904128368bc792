package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var (
	_ domain.Catalog     = (*CatalogStore)(nil)
	_ domain.ItemFactory = (*ItemFactory)(nil)
)

const templateColumns = `id, name, quality, class, buy_price, sell_price, max_stack`

// CatalogStore reads item templates and their random property pools.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore creates a CatalogStore backed by the given connection pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) GetItemTemplate(ctx context.Context, itemID int64) (domain.ItemTemplate, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+templateColumns+" FROM item_templates WHERE id = $1", itemID)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItemTemplate{}, fmt.Errorf("postgres: template %d: %w", itemID, domain.ErrNotFound)
		}
		return domain.ItemTemplate{}, fmt.Errorf("postgres: get template %d: %w", itemID, err)
	}
	return t, nil
}

func (s *CatalogStore) ListTemplates(ctx context.Context) ([]domain.ItemTemplate, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+templateColumns+" FROM item_templates ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("postgres: list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.ItemTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list templates rows: %w", err)
	}
	return out, nil
}

// RandomPropertyID rolls one of the item's random properties, or 0 when it
// has none.
func (s *CatalogStore) RandomPropertyID(ctx context.Context, itemID int64) (int64, error) {
	const query = `SELECT property_id FROM item_random_properties WHERE item_id = $1 ORDER BY random() LIMIT 1`
	var id int64
	if err := s.pool.QueryRow(ctx, query, itemID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: random property for %d: %w", itemID, err)
	}
	return id, nil
}

// UpsertTemplates loads a catalog, typically from a seed file, in a single
// batch.
func (s *CatalogStore) UpsertTemplates(ctx context.Context, templates []domain.ItemTemplate, properties map[int64][]int64) error {
	const upsert = `
		INSERT INTO item_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name       = EXCLUDED.name,
			quality    = EXCLUDED.quality,
			class      = EXCLUDED.class,
			buy_price  = EXCLUDED.buy_price,
			sell_price = EXCLUDED.sell_price,
			max_stack  = EXCLUDED.max_stack`
	const prop = `INSERT INTO item_random_properties (item_id, property_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	batch := &pgx.Batch{}
	for _, t := range templates {
		batch.Queue(upsert, t.ID, t.Name, int(t.Quality), t.Class, t.BuyPrice, t.SellPrice, t.MaxStack)
	}
	for itemID, ids := range properties {
		for _, id := range ids {
			batch.Queue(prop, itemID, id)
		}
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: upsert %d templates: %w", len(templates), err)
	}
	return nil
}

func scanTemplate(row pgx.Row) (domain.ItemTemplate, error) {
	var (
		t domain.ItemTemplate
		q int
	)
	err := row.Scan(&t.ID, &t.Name, &q, &t.Class, &t.BuyPrice, &t.SellPrice, &t.MaxStack)
	t.Quality = domain.Quality(q)
	return t, err
}

// ItemFactory allocates item GUIDs from item_guid_seq. Items are not
// persisted until the seller saves them with their listing.
type ItemFactory struct {
	pool *pgxpool.Pool
}

// NewItemFactory creates an ItemFactory backed by the given connection pool.
func NewItemFactory(pool *pgxpool.Pool) *ItemFactory {
	return &ItemFactory{pool: pool}
}

func (f *ItemFactory) CreateItem(ctx context.Context, itemID int64, count int, owner int64) (domain.Item, error) {
	var guid int64
	if err := f.pool.QueryRow(ctx, `SELECT nextval('item_guid_seq')`).Scan(&guid); err != nil {
		return domain.Item{}, fmt.Errorf("postgres: allocate guid for item %d: %w", itemID, err)
	}
	return domain.Item{GUID: guid, ItemID: itemID, Owner: owner, Count: count}, nil
}
