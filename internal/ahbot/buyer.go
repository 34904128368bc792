package ahbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// BuyerDeps are the collaborators a Buyer needs. Observer is optional.
type BuyerDeps struct {
	Ledger   domain.Ledger
	Catalog  domain.Catalog
	Mailer   Mailer
	Bots     domain.BotSet
	Observer Observer
}

// Buyer bids on and buys out listings posted by real players.
type Buyer struct {
	deps   BuyerDeps
	r      Rand
	now    func() time.Time
	logger *slog.Logger
}

// NewBuyer creates a Buyer.
func NewBuyer(deps BuyerDeps, r Rand, logger *slog.Logger) *Buyer {
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &Buyer{
		deps:   deps,
		r:      r,
		now:    time.Now,
		logger: logger.With(slog.String("component", "buyer")),
	}
}

// decision is what the buyer wants to do with one listing.
type decision struct {
	amount int64
	buyout bool
}

// decide prices a listing for the buyer. ok is false when the listing is
// not worth bidding on.
func decide(r Rand, l domain.Listing, tmpl domain.ItemTemplate, count int, cfg *domain.ChannelConfig) (decision, bool) {
	if !tmpl.Quality.Supported() {
		return decision{}, false
	}
	current := l.CurrentPrice()
	maxBid := decimal.NewFromInt(buyerBaseline(cfg, tmpl)).
		Mul(decimal.NewFromInt(int64(count))).
		Mul(decimal.NewFromFloat(cfg.Tuning(tmpl.Quality).BuyerPrice))
	cur := decimal.NewFromInt(current)
	if cur.GreaterThan(maxBid) || !maxBid.IsPositive() {
		return decision{}, false
	}

	rate := decimal.New(int64(urand(r, 1, 100)), -2)
	amount := cur.Add(maxBid.Sub(cur).Mul(rate)).IntPart()
	if floor := current + l.MinimumOutbid(); amount < floor {
		amount = floor
	}

	if !l.HasBuyout() || amount < l.Buyout {
		return decision{amount: amount}, true
	}
	return decision{amount: l.Buyout, buyout: true}, true
}

// Buy samples up to BidsPerInterval listings that who neither owns nor
// already leads, and bids on or buys out the ones priced below its limit.
// Each listing is visited at most once per call.
func (b *Buyer) Buy(ctx context.Context, who domain.Participant, cfg *domain.ChannelConfig) domain.BuyReport {
	var rep domain.BuyReport
	if cfg == nil || !cfg.BuyerEnabled {
		return rep
	}
	log := b.logger.With(slog.String("channel", cfg.Channel.String()))

	pool, err := b.deps.Ledger.ListListings(ctx, cfg.Channel, domain.ListingFilter{
		ExcludeOwner:  who.GUID,
		ExcludeBidder: who.GUID,
		ActiveAt:      b.now(),
	})
	if err != nil {
		log.ErrorContext(ctx, "list listings failed", slog.String("error", err.Error()))
		rep.Errors++
		return rep
	}
	ids := make([]int64, len(pool))
	for i, l := range pool {
		ids[i] = l.ID
	}
	rep.Candidates = len(ids)
	if len(ids) == 0 {
		logAt(ctx, log, cfg.DebugBuyer, "no candidate listings")
		return rep
	}

	for n := 0; n < cfg.BidsPerInterval && len(ids) > 0; n++ {
		i := b.r.IntN(len(ids))
		id := ids[i]
		ids[i] = ids[len(ids)-1]
		ids = ids[:len(ids)-1]
		rep.Evaluated++

		switch err := b.visit(ctx, log, who, cfg, id, &rep); {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrBidNotHigher):
			// Sold, expired or outbid by a player since the pool was read.
			rep.Skipped++
		default:
			rep.Errors++
			log.WarnContext(ctx, "listing not processed",
				slog.Int64("listing_id", id), slog.String("error", err.Error()))
		}
	}

	logAt(ctx, log, cfg.TraceBuyer, "buyer run finished",
		slog.Int("candidates", rep.Candidates),
		slog.Int("evaluated", rep.Evaluated),
		slog.Int("bids", rep.Bids),
		slog.Int("buyouts", rep.Buyouts),
		slog.Int("skipped", rep.Skipped),
		slog.Int("errors", rep.Errors),
	)
	return rep
}

func (b *Buyer) visit(ctx context.Context, log *slog.Logger, who domain.Participant, cfg *domain.ChannelConfig, id int64, rep *domain.BuyReport) error {
	l, err := b.deps.Ledger.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if b.deps.Bots.Contains(l.Owner) {
		rep.Skipped++
		return nil
	}
	item, err := b.deps.Ledger.GetItem(ctx, l.ItemGUID)
	if err != nil {
		return err
	}
	tmpl, err := b.deps.Catalog.GetItemTemplate(ctx, l.ItemID)
	if err != nil {
		return err
	}

	d, ok := decide(b.r, l, tmpl, item.Count, cfg)
	if !ok {
		rep.Skipped++
		logAt(ctx, log, cfg.DebugBuyer, "listing skipped",
			slog.Int64("listing_id", l.ID),
			slog.Int64("item_id", l.ItemID),
			slog.Int64("current", l.CurrentPrice()),
			slog.Int("quality", int(tmpl.Quality)),
		)
		return nil
	}

	if d.buyout {
		won, err := b.buyout(ctx, who, cfg, l)
		if err != nil {
			return err
		}
		rep.Buyouts++
		logAt(ctx, log, cfg.TraceBuyer, "bought out",
			slog.Int64("listing_id", won.ID),
			slog.Int64("item_id", won.ItemID),
			slog.Int64("start_bid", won.StartBid),
			slog.Int64("buyout", won.Buyout),
		)
		return nil
	}

	if err := b.bid(ctx, who, l, d.amount); err != nil {
		return err
	}
	rep.Bids++
	logAt(ctx, log, cfg.TraceBuyer, "new bid",
		slog.Int64("listing_id", l.ID),
		slog.Int64("item_id", l.ItemID),
		slog.Int64("start_bid", l.StartBid),
		slog.Int64("current", l.CurrentPrice()),
		slog.Int64("bid", d.amount),
		slog.Int64("buyout", l.Buyout),
	)
	return nil
}

// bid raises the listing and refunds the bidder it displaced, atomically.
// The listing is re-read under lock; if a player moved the price past
// amount since l was read, the bid is abandoned with ErrBidNotHigher.
func (b *Buyer) bid(ctx context.Context, who domain.Participant, l domain.Listing, amount int64) error {
	var placed domain.Listing
	err := b.deps.Ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		cur, err := tx.GetListingForUpdate(ctx, l.ID)
		if err != nil {
			return err
		}
		if cur.Bidder == who.GUID || amount < cur.CurrentPrice()+cur.MinimumOutbid() {
			return fmt.Errorf("buyer: listing %d now at %d: %w", cur.ID, cur.CurrentPrice(), domain.ErrBidNotHigher)
		}
		if err := tx.UpdateBid(ctx, cur.ID, who.GUID, amount); err != nil {
			return err
		}
		if cur.HasBidder() {
			if err := b.deps.Mailer.SendOutbidRefund(ctx, tx, cur, amount); err != nil {
				return err
			}
		}
		placed = cur
		placed.Bidder, placed.Bid = who.GUID, amount
		return nil
	})
	if err != nil {
		return err
	}
	b.deps.Observer.BidPlaced(ctx, placed)
	return nil
}

// buyout refunds any prior bidder, mails both parties and removes the
// listing with its item, all in one transaction. It settles against the
// locked row, and backs off if a player bid reached the buyout first.
func (b *Buyer) buyout(ctx context.Context, who domain.Participant, cfg *domain.ChannelConfig, l domain.Listing) (domain.Listing, error) {
	var won domain.Listing
	err := b.deps.Ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		cur, err := tx.GetListingForUpdate(ctx, l.ID)
		if err != nil {
			return err
		}
		if !cur.HasBuyout() || cur.Buyout != l.Buyout || cur.Bid >= cur.Buyout || cur.Bidder == who.GUID {
			return fmt.Errorf("buyer: listing %d no longer buyable at %d: %w", cur.ID, l.Buyout, domain.ErrBidNotHigher)
		}
		if cur.HasBidder() {
			if err := b.deps.Mailer.SendOutbidRefund(ctx, tx, cur, cur.Buyout); err != nil {
				return err
			}
		}
		won = cur
		won.Bidder, won.Bid = who.GUID, cur.Buyout
		if err := b.deps.Mailer.SendSaleSuccess(ctx, tx, won, cfg.CutPercent); err != nil {
			return err
		}
		if err := b.deps.Mailer.SendAuctionWon(ctx, tx, won); err != nil {
			return err
		}
		if err := tx.DeleteListing(ctx, cur.ID); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, cur.ItemGUID)
	})
	if err != nil {
		return domain.Listing{}, err
	}
	b.deps.Observer.BoughtOut(ctx, won)
	return won, nil
}
