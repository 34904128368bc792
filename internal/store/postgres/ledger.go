package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var (
	_ domain.Ledger   = (*Ledger)(nil)
	_ domain.LedgerTx = (*ledgerTx)(nil)
)

const listingColumns = `id, channel, owner, bidder, item_guid, item_id, count,
	start_bid, bid, buyout, deposit, expires_at, created_at`

// Ledger implements domain.Ledger over the listings, items and mail tables.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// listingWhere renders the filter as SQL clauses starting at $2; $1 is the
// channel.
func listingWhere(ch domain.ChannelID, f domain.ListingFilter) (string, []any) {
	where := " WHERE channel = $1"
	args := []any{int(ch)}
	add := func(clause string, v any) {
		args = append(args, v)
		where += fmt.Sprintf(clause, len(args))
	}
	if f.Owner != 0 {
		add(" AND owner = $%d", f.Owner)
	}
	if f.ExcludeOwner != 0 {
		add(" AND owner <> $%d", f.ExcludeOwner)
	}
	if f.ExcludeBidder != 0 {
		add(" AND bidder <> $%d", f.ExcludeBidder)
	}
	if !f.ActiveAt.IsZero() {
		add(" AND expires_at > $%d", f.ActiveAt)
	}
	return where, args
}

func (l *Ledger) ListListings(ctx context.Context, ch domain.ChannelID, f domain.ListingFilter) ([]domain.Listing, error) {
	where, args := listingWhere(ch, f)
	rows, err := l.pool.Query(ctx, "SELECT "+listingColumns+" FROM listings"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list listings %s: %w", ch, err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		lst, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		out = append(out, lst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list listings rows: %w", err)
	}
	return out, nil
}

func (l *Ledger) CountListings(ctx context.Context, ch domain.ChannelID, f domain.ListingFilter) (int, error) {
	where, args := listingWhere(ch, f)
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count listings %s: %w", ch, err)
	}
	return n, nil
}

func (l *Ledger) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	row := l.pool.QueryRow(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = $1", id)
	lst, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, fmt.Errorf("postgres: listing %d: %w", id, domain.ErrNotFound)
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %d: %w", id, err)
	}
	return lst, nil
}

func (l *Ledger) GetItem(ctx context.Context, guid int64) (domain.Item, error) {
	const query = `SELECT guid, item_id, owner, count, random_property_id FROM items WHERE guid = $1`
	var it domain.Item
	err := l.pool.QueryRow(ctx, query, guid).Scan(&it.GUID, &it.ItemID, &it.Owner, &it.Count, &it.RandomPropertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, fmt.Errorf("postgres: item %d: %w", guid, domain.ErrNotFound)
		}
		return domain.Item{}, fmt.Errorf("postgres: get item %d: %w", guid, err)
	}
	return it, nil
}

func (l *Ledger) ExpireListings(ctx context.Context, ch domain.ChannelID, owner int64, now time.Time) (int, error) {
	const query = `UPDATE listings SET expires_at = $3 WHERE channel = $1 AND owner = $2 AND expires_at > $3`
	tag, err := l.pool.Exec(ctx, query, int(ch), owner, now)
	if err != nil {
		return 0, fmt.Errorf("postgres: expire listings %s: %w", ch, err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpired deletes listings that expired at or before now without a
// bid, and their items.
func (l *Ledger) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	const query = `
		WITH gone AS (
			DELETE FROM listings
			WHERE bidder = 0 AND expires_at <= $1
			RETURNING item_guid
		), items_gone AS (
			DELETE FROM items WHERE guid IN (SELECT item_guid FROM gone)
		)
		SELECT COUNT(*) FROM gone`
	var n int
	if err := l.pool.QueryRow(ctx, query, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: purge expired listings: %w", err)
	}
	return n, nil
}

func (l *Ledger) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin ledger tx: %w", err)
	}
	if err := fn(&ledgerTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit ledger tx: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx pgx.Tx
}

func (t *ledgerTx) CreateListing(ctx context.Context, l *domain.Listing) error {
	const query = `
		INSERT INTO listings (
			channel, owner, bidder, item_guid, item_id, count,
			start_bid, bid, buyout, deposit, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	err := t.tx.QueryRow(ctx, query,
		int(l.Channel), l.Owner, l.Bidder, l.ItemGUID, l.ItemID, l.Count,
		l.StartBid, l.Bid, l.Buyout, l.Deposit, l.ExpiresAt, created,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("postgres: create listing for item %d: %w", l.ItemGUID, err)
	}
	return nil
}

// GetListingForUpdate reads a listing and row-locks it until the
// transaction ends.
func (t *ledgerTx) GetListingForUpdate(ctx context.Context, id int64) (domain.Listing, error) {
	row := t.tx.QueryRow(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = $1 FOR UPDATE", id)
	lst, err := scanListing(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Listing{}, fmt.Errorf("postgres: listing %d: %w", id, domain.ErrNotFound)
		}
		return domain.Listing{}, fmt.Errorf("postgres: lock listing %d: %w", id, err)
	}
	return lst, nil
}

// UpdateBid is a compare-and-set on the stored bid, so two bidders racing
// on one listing cannot both win.
func (t *ledgerTx) UpdateBid(ctx context.Context, id, bidder, amount int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE listings SET bidder = $2, bid = $3 WHERE id = $1 AND bid < $3`,
		id, bidder, amount,
	)
	if err != nil {
		return fmt.Errorf("postgres: update bid on listing %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: check listing %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("postgres: listing %d: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("postgres: listing %d bid %d: %w", id, amount, domain.ErrBidNotHigher)
}

func (t *ledgerTx) DeleteListing(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete listing %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: listing %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (t *ledgerTx) SaveItem(ctx context.Context, item domain.Item) error {
	const query = `
		INSERT INTO items (guid, item_id, owner, count, random_property_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guid) DO UPDATE SET
			owner              = EXCLUDED.owner,
			count              = EXCLUDED.count,
			random_property_id = EXCLUDED.random_property_id`
	if _, err := t.tx.Exec(ctx, query, item.GUID, item.ItemID, item.Owner, item.Count, item.RandomPropertyID); err != nil {
		return fmt.Errorf("postgres: save item %d: %w", item.GUID, err)
	}
	return nil
}

func (t *ledgerTx) DeleteItem(ctx context.Context, guid int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM items WHERE guid = $1`, guid); err != nil {
		return fmt.Errorf("postgres: delete item %d: %w", guid, err)
	}
	return nil
}

func (t *ledgerTx) QueueMail(ctx context.Context, m domain.Mail) error {
	const query = `
		INSERT INTO mail (
			kind, sender, recipient, listing_id, item_id, item_guid,
			money, deposit, cut, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := t.tx.Exec(ctx, query,
		string(m.Kind), m.Sender, m.Recipient, m.ListingID, m.ItemID, m.ItemGUID,
		m.Money, m.Deposit, m.Cut, created,
	)
	if err != nil {
		return fmt.Errorf("postgres: queue %s mail for listing %d: %w", m.Kind, m.ListingID, err)
	}
	return nil
}

func scanListing(row pgx.Row) (domain.Listing, error) {
	var (
		l  domain.Listing
		ch int
	)
	err := row.Scan(
		&l.ID, &ch, &l.Owner, &l.Bidder, &l.ItemGUID, &l.ItemID, &l.Count,
		&l.StartBid, &l.Bid, &l.Buyout, &l.Deposit, &l.ExpiresAt, &l.CreatedAt,
	)
	l.Channel = domain.ChannelID(ch)
	return l, err
}
