package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var (
	_ domain.ChannelConfigStore = (*ChannelConfigStore)(nil)
	_ domain.MarketPriceStore   = (*MarketPriceStore)(nil)
	_ domain.AuditStore         = (*AuditStore)(nil)
)

// ChannelConfigStore keeps the latest snapshot per channel.
type ChannelConfigStore struct {
	mu   sync.Mutex
	cfgs map[domain.ChannelID]domain.ChannelConfig
}

func NewChannelConfigStore() *ChannelConfigStore {
	return &ChannelConfigStore{cfgs: make(map[domain.ChannelID]domain.ChannelConfig)}
}

func (s *ChannelConfigStore) Load(_ context.Context, ch domain.ChannelID) (domain.ChannelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.cfgs[ch]
	if !ok {
		return domain.ChannelConfig{}, fmt.Errorf("memory: channel config %s: %w", ch, domain.ErrNotFound)
	}
	return cfg, nil
}

func (s *ChannelConfigStore) Save(_ context.Context, cfg domain.ChannelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfgs[cfg.Channel] = cfg
	return nil
}

// MarketPriceStore maps item IDs to baseline prices.
type MarketPriceStore struct {
	mu     sync.RWMutex
	prices map[int64]int64
}

func NewMarketPriceStore(prices map[int64]int64) *MarketPriceStore {
	s := &MarketPriceStore{prices: make(map[int64]int64, len(prices))}
	for id, p := range prices {
		s.prices[id] = p
	}
	return s
}

func (s *MarketPriceStore) Price(_ context.Context, itemID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[itemID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

func (s *MarketPriceStore) SetPrice(_ context.Context, itemID, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[itemID] = price
	return nil
}

// AuditStore is an append-only slice of entries.
type AuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	now     func() time.Time
}

func NewAuditStore() *AuditStore {
	return &AuditStore{now: time.Now}
}

func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        int64(len(s.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: s.now(),
	})
	return nil
}

// List returns entries newest first.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range slices.Backward(s.entries) {
		if opts.Since != nil && e.CreatedAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.CreatedAt.After(*opts.Until) {
			continue
		}
		out = append(out, e)
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
