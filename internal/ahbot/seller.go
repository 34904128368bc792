package ahbot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// SellerDeps are the collaborators a Seller needs. Prices and Observer are
// optional.
type SellerDeps struct {
	Ledger   domain.Ledger
	Catalog  domain.Catalog
	Items    domain.ItemFactory
	Prices   domain.MarketPriceStore
	Deposit  domain.DepositCalculator
	Observer Observer
}

// Seller keeps a channel stocked with bot listings.
type Seller struct {
	deps     SellerDeps
	bins     *domain.Bins
	binIndex map[int64]domain.Category
	r        Rand
	now      func() time.Time
	logger   *slog.Logger
}

// NewSeller creates a Seller listing items from bins.
func NewSeller(deps SellerDeps, bins *domain.Bins, r Rand, logger *slog.Logger) *Seller {
	if deps.Deposit == nil {
		deps.Deposit = domain.StandardDeposit{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &Seller{
		deps:     deps,
		bins:     bins,
		binIndex: bins.Index(),
		r:        r,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "seller")),
	}
}

// Sell creates up to ItemsPerCycle listings for who in cfg's channel. It
// never fails; problems are counted in the report.
func (s *Seller) Sell(ctx context.Context, who domain.Participant, cfg *domain.ChannelConfig) domain.SellReport {
	var rep domain.SellReport
	if cfg == nil || !cfg.SellerEnabled || cfg.MaxItems == 0 {
		return rep
	}
	log := s.logger.With(slog.String("channel", cfg.Channel.String()))
	now := s.now()

	active, err := s.deps.Ledger.ListListings(ctx, cfg.Channel, domain.ListingFilter{ActiveAt: now})
	if err != nil {
		log.ErrorContext(ctx, "list listings failed", slog.String("error", err.Error()))
		rep.Errors++
		return rep
	}

	var perCategory [domain.CategoryCount]int
	current := 0
	for _, l := range active {
		if cfg.ConsiderOnlyBotListings && l.Owner != who.GUID {
			continue
		}
		current++
		if c, ok := s.binIndex[l.ItemID]; ok {
			perCategory[c]++
		}
	}

	if current >= cfg.EffectiveMinItems() {
		rep.AboveMin = true
		logAt(ctx, log, cfg.DebugSeller, "listings above minimum", slog.Int("current", current))
		return rep
	}
	if current >= cfg.MaxItems {
		rep.AboveMax = true
		logAt(ctx, log, cfg.DebugSeller, "listings at or above maximum", slog.Int("current", current))
		return rep
	}
	rep.Requested = min(cfg.ItemsPerCycle, cfg.MaxItems-current)

	var listed map[int64]int
	if cfg.DuplicatesCount > 0 {
		listed = make(map[int64]int, len(active))
		for _, l := range active {
			registerItem(listed, l.ItemID)
		}
	}
	p := newPlanner(s.r, cfg, s.bins, perCategory, listed)
	logAt(ctx, log, cfg.DebugSeller, "missing counts", slog.Any("missing", p.Missing()))

	for range rep.Requested {
		cat, itemID, err := p.next()
		if err != nil {
			// Nothing left to list this tick.
			rep.Exhausted = true
			logAt(ctx, log, cfg.DebugSeller, "selection exhausted", slog.String("reason", err.Error()))
			break
		}

		tmpl, err := s.deps.Catalog.GetItemTemplate(ctx, itemID)
		if err != nil {
			rep.Errors++
			logAt(ctx, log, cfg.DebugSeller, "template lookup failed",
				slog.Int64("item_id", itemID), slog.String("error", err.Error()))
			continue
		}
		if !tmpl.Quality.Supported() {
			rep.Errors++
			logAt(ctx, log, cfg.DebugSeller, "quality too high",
				slog.Int64("item_id", itemID), slog.Int("quality", int(tmpl.Quality)))
			continue
		}

		plan := p.shape(cat, tmpl, s.marketPrice(ctx, log, cfg, itemID))

		l, err := s.apply(ctx, who, cfg, tmpl, plan, now)
		if err != nil {
			rep.Errors++
			logAt(ctx, log, cfg.DebugSeller, "listing not created",
				slog.Int64("item_id", itemID), slog.String("error", err.Error()))
			continue
		}
		p.register(itemID)
		rep.Created++
		s.deps.Observer.ListingCreated(ctx, l)
		logAt(ctx, log, cfg.TraceSeller, "new listing",
			slog.Int64("listing_id", l.ID),
			slog.Int64("item_id", itemID),
			slog.Int("stack", l.Count),
			slog.Int64("start_bid", l.StartBid),
			slog.Int64("buyout", l.Buyout),
		)
	}

	logAt(ctx, log, cfg.TraceSeller, "seller run finished",
		slog.Int("requested", rep.Requested),
		slog.Int("created", rep.Created),
		slog.Int("errors", rep.Errors),
		slog.Bool("exhausted", rep.Exhausted),
	)
	return rep
}

// apply instantiates the item and persists it together with its listing.
func (s *Seller) apply(ctx context.Context, who domain.Participant, cfg *domain.ChannelConfig, tmpl domain.ItemTemplate, plan ListingPlan, now time.Time) (domain.Listing, error) {
	item, err := s.deps.Items.CreateItem(ctx, plan.ItemID, 1, who.GUID)
	if err != nil {
		return domain.Listing{}, err
	}
	if prop, err := s.deps.Catalog.RandomPropertyID(ctx, plan.ItemID); err == nil {
		item.RandomPropertyID = prop
	}
	item.SetCount(plan.Stack)

	l := domain.Listing{
		Channel:   cfg.Channel,
		Owner:     who.GUID,
		ItemGUID:  item.GUID,
		ItemID:    plan.ItemID,
		Count:     item.Count,
		StartBid:  plan.StartBid,
		Buyout:    plan.Buyout,
		Deposit:   s.deps.Deposit.Deposit(*cfg, plan.Duration, tmpl, item.Count),
		ExpiresAt: now.Add(plan.Duration),
		CreatedAt: now,
	}
	err = s.deps.Ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		if err := tx.SaveItem(ctx, item); err != nil {
			return err
		}
		return tx.CreateListing(ctx, &l)
	})
	return l, err
}

func (s *Seller) marketPrice(ctx context.Context, log *slog.Logger, cfg *domain.ChannelConfig, itemID int64) int64 {
	if !cfg.SellAtMarketPrice || s.deps.Prices == nil {
		return 0
	}
	price, err := s.deps.Prices.Price(ctx, itemID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.WarnContext(ctx, "market price lookup failed",
				slog.Int64("item_id", itemID), slog.String("error", err.Error()))
		}
		return 0
	}
	return price
}

// logAt logs at Info when the channel's debug or trace flag is on and at
// Debug otherwise.
func logAt(ctx context.Context, log *slog.Logger, loud bool, msg string, attrs ...any) {
	level := slog.LevelDebug
	if loud {
		level = slog.LevelInfo
	}
	log.Log(ctx, level, msg, attrs...)
}
