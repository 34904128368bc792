// Package memory implements the domain store interfaces in process memory.
// It backs tests and the "memory" storage driver.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var (
	_ domain.Ledger   = (*Ledger)(nil)
	_ domain.LedgerTx = (*ledgerTx)(nil)
)

// Ledger is an in-memory auction ledger. Transactions work on copies of
// the tables that replace the originals on commit.
type Ledger struct {
	mu          sync.Mutex
	listings    map[int64]domain.Listing
	items       map[int64]domain.Item
	mail        []domain.Mail
	nextListing int64
	nextMail    int64
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		listings: make(map[int64]domain.Listing),
		items:    make(map[int64]domain.Item),
	}
}

// Put inserts or replaces a listing and its item directly, outside any
// transaction. A zero listing ID is assigned.
func (l *Ledger) Put(listing domain.Listing, item domain.Item) domain.Listing {
	l.mu.Lock()
	defer l.mu.Unlock()
	if listing.ID == 0 {
		l.nextListing++
		listing.ID = l.nextListing
	} else if listing.ID > l.nextListing {
		l.nextListing = listing.ID
	}
	l.listings[listing.ID] = listing
	if item.GUID != 0 {
		l.items[item.GUID] = item
	}
	return listing
}

// Mail returns every queued mail in queue order.
func (l *Ledger) Mail() []domain.Mail {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.mail)
}

func (l *Ledger) ListListings(_ context.Context, ch domain.ChannelID, f domain.ListingFilter) ([]domain.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Listing
	for _, id := range slices.Sorted(maps.Keys(l.listings)) {
		lst := l.listings[id]
		if lst.Channel == ch && f.Matches(lst) {
			out = append(out, lst)
		}
	}
	return out, nil
}

func (l *Ledger) CountListings(ctx context.Context, ch domain.ChannelID, f domain.ListingFilter) (int, error) {
	out, err := l.ListListings(ctx, ch, f)
	return len(out), err
}

func (l *Ledger) GetListing(_ context.Context, id int64) (domain.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lst, ok := l.listings[id]
	if !ok {
		return domain.Listing{}, fmt.Errorf("memory: listing %d: %w", id, domain.ErrNotFound)
	}
	return lst, nil
}

func (l *Ledger) GetItem(_ context.Context, guid int64) (domain.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	it, ok := l.items[guid]
	if !ok {
		return domain.Item{}, fmt.Errorf("memory: item %d: %w", guid, domain.ErrNotFound)
	}
	return it, nil
}

func (l *Ledger) ExpireListings(_ context.Context, ch domain.ChannelID, owner int64, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, lst := range l.listings {
		if lst.Channel != ch || lst.Owner != owner || !lst.ExpiresAt.After(now) {
			continue
		}
		lst.ExpiresAt = now
		l.listings[id] = lst
		n++
	}
	return n, nil
}

// WithTx holds the ledger lock for the whole of fn, so fn must not call
// back into the Ledger's read methods.
func (l *Ledger) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &ledgerTx{
		listings:    maps.Clone(l.listings),
		items:       maps.Clone(l.items),
		nextListing: l.nextListing,
		nextMail:    l.nextMail,
	}
	if err := fn(tx); err != nil {
		return err
	}
	l.listings = tx.listings
	l.items = tx.items
	l.mail = append(l.mail, tx.mail...)
	l.nextListing = tx.nextListing
	l.nextMail = tx.nextMail
	return nil
}

// PurgeExpired drops listings that expired at or before now without a
// bid, together with their items. Listings with a zero expiry are kept.
func (l *Ledger) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for id, lst := range l.listings {
		if lst.HasBidder() || lst.ExpiresAt.IsZero() || lst.ExpiresAt.After(now) {
			continue
		}
		delete(l.listings, id)
		delete(l.items, lst.ItemGUID)
		n++
	}
	return n, nil
}

type ledgerTx struct {
	listings    map[int64]domain.Listing
	items       map[int64]domain.Item
	mail        []domain.Mail
	nextListing int64
	nextMail    int64
}

func (t *ledgerTx) CreateListing(_ context.Context, l *domain.Listing) error {
	t.nextListing++
	l.ID = t.nextListing
	t.listings[l.ID] = *l
	return nil
}

func (t *ledgerTx) GetListingForUpdate(_ context.Context, id int64) (domain.Listing, error) {
	l, ok := t.listings[id]
	if !ok {
		return domain.Listing{}, fmt.Errorf("memory: listing %d: %w", id, domain.ErrNotFound)
	}
	return l, nil
}

func (t *ledgerTx) UpdateBid(_ context.Context, id, bidder, amount int64) error {
	l, ok := t.listings[id]
	if !ok {
		return fmt.Errorf("memory: listing %d: %w", id, domain.ErrNotFound)
	}
	if amount <= l.Bid {
		return fmt.Errorf("memory: listing %d bid %d <= %d: %w", id, amount, l.Bid, domain.ErrBidNotHigher)
	}
	l.Bidder, l.Bid = bidder, amount
	t.listings[id] = l
	return nil
}

func (t *ledgerTx) DeleteListing(_ context.Context, id int64) error {
	if _, ok := t.listings[id]; !ok {
		return fmt.Errorf("memory: listing %d: %w", id, domain.ErrNotFound)
	}
	delete(t.listings, id)
	return nil
}

func (t *ledgerTx) SaveItem(_ context.Context, item domain.Item) error {
	t.items[item.GUID] = item
	return nil
}

func (t *ledgerTx) DeleteItem(_ context.Context, guid int64) error {
	delete(t.items, guid)
	return nil
}

func (t *ledgerTx) QueueMail(_ context.Context, m domain.Mail) error {
	t.nextMail++
	m.ID = t.nextMail
	t.mail = append(t.mail, m)
	return nil
}
