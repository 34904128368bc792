package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var (
	_ domain.ChannelConfigStore = (*ChannelConfigStore)(nil)
	_ domain.MarketPriceStore   = (*MarketPriceStore)(nil)
)

// ChannelConfigStore keeps one JSONB snapshot per channel.
type ChannelConfigStore struct {
	pool *pgxpool.Pool
}

// NewChannelConfigStore creates a ChannelConfigStore backed by the given connection pool.
func NewChannelConfigStore(pool *pgxpool.Pool) *ChannelConfigStore {
	return &ChannelConfigStore{pool: pool}
}

func (s *ChannelConfigStore) Load(ctx context.Context, ch domain.ChannelID) (domain.ChannelConfig, error) {
	const query = `SELECT config_json FROM channel_configs WHERE channel = $1`

	var configJSON []byte
	if err := s.pool.QueryRow(ctx, query, int(ch)).Scan(&configJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChannelConfig{}, domain.ErrNotFound
		}
		return domain.ChannelConfig{}, fmt.Errorf("postgres: load channel config %s: %w", ch, err)
	}

	var cfg domain.ChannelConfig
	if err := json.Unmarshal(configJSON, &cfg); err != nil {
		return domain.ChannelConfig{}, fmt.Errorf("postgres: unmarshal channel config %s: %w", ch, err)
	}
	cfg.Channel = ch
	return cfg, nil
}

// Save upserts cfg. An older version never overwrites a newer one.
func (s *ChannelConfigStore) Save(ctx context.Context, cfg domain.ChannelConfig) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("postgres: marshal channel config %s: %w", cfg.Channel, err)
	}

	const query = `
		INSERT INTO channel_configs (channel, version, config_json, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (channel) DO UPDATE SET
			version     = EXCLUDED.version,
			config_json = EXCLUDED.config_json,
			updated_at  = NOW()
		WHERE channel_configs.version <= EXCLUDED.version`

	if _, err := s.pool.Exec(ctx, query, int(cfg.Channel), cfg.Version, configJSON); err != nil {
		return fmt.Errorf("postgres: save channel config %s: %w", cfg.Channel, err)
	}
	return nil
}

// MarketPriceStore implements domain.MarketPriceStore over market_prices.
type MarketPriceStore struct {
	pool *pgxpool.Pool
}

// NewMarketPriceStore creates a MarketPriceStore backed by the given connection pool.
func NewMarketPriceStore(pool *pgxpool.Pool) *MarketPriceStore {
	return &MarketPriceStore{pool: pool}
}

func (s *MarketPriceStore) Price(ctx context.Context, itemID int64) (int64, error) {
	var price int64
	err := s.pool.QueryRow(ctx, `SELECT price FROM market_prices WHERE item_id = $1`, itemID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("postgres: market price %d: %w", itemID, err)
	}
	return price, nil
}

func (s *MarketPriceStore) SetPrice(ctx context.Context, itemID, price int64) error {
	const query = `
		INSERT INTO market_prices (item_id, price, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (item_id) DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, itemID, price); err != nil {
		return fmt.Errorf("postgres: set market price %d: %w", itemID, err)
	}
	return nil
}
