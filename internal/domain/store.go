package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// Ledger is the shared auction ledger. Reads run outside transactions;
// every group of related writes goes through WithTx.
type Ledger interface {
	ListListings(ctx context.Context, ch ChannelID, f ListingFilter) ([]Listing, error)
	CountListings(ctx context.Context, ch ChannelID, f ListingFilter) (int, error)
	GetListing(ctx context.Context, id int64) (Listing, error)
	GetItem(ctx context.Context, guid int64) (Item, error)
	// ExpireListings moves the expiry of every listing owned by owner in ch
	// to now and returns how many were touched.
	ExpireListings(ctx context.Context, ch ChannelID, owner int64, now time.Time) (int, error)
	// WithTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the write side of the ledger, valid only inside WithTx.
type LedgerTx interface {
	// CreateListing persists l and assigns l.ID.
	CreateListing(ctx context.Context, l *Listing) error
	// GetListingForUpdate reads a listing and holds it against concurrent
	// writers until the transaction ends.
	GetListingForUpdate(ctx context.Context, id int64) (Listing, error)
	// UpdateBid sets bidder and bid, failing with ErrBidNotHigher unless
	// amount exceeds the stored bid, and ErrNotFound if the listing is gone.
	UpdateBid(ctx context.Context, id, bidder, amount int64) error
	DeleteListing(ctx context.Context, id int64) error
	SaveItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, guid int64) error
	QueueMail(ctx context.Context, m Mail) error
}

// Catalog is the read-only item template lookup.
type Catalog interface {
	GetItemTemplate(ctx context.Context, itemID int64) (ItemTemplate, error)
	ListTemplates(ctx context.Context) ([]ItemTemplate, error)
	// RandomPropertyID returns 0 when the item has no random properties.
	RandomPropertyID(ctx context.Context, itemID int64) (int64, error)
}

// ItemFactory instantiates unsaved items with freshly allocated GUIDs.
type ItemFactory interface {
	CreateItem(ctx context.Context, itemID int64, count int, owner int64) (Item, error)
}

// ChannelConfigStore persists channel configuration snapshots.
type ChannelConfigStore interface {
	Load(ctx context.Context, ch ChannelID) (ChannelConfig, error)
	Save(ctx context.Context, cfg ChannelConfig) error
}

// MarketPriceStore holds the configured baseline price per item.
type MarketPriceStore interface {
	// Price returns ErrNotFound when no baseline is configured.
	Price(ctx context.Context, itemID int64) (int64, error)
	SetPrice(ctx context.Context, itemID, price int64) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
