package ahbot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Scheduler runs the seller and buyer for each channel once per tick and
// paces the buyer by each channel's bidding interval.
type Scheduler struct {
	who       domain.Participant
	registry  *Registry
	seller    *Seller
	buyer     *Buyer
	twoSide   bool
	immediate bool
	now       func() time.Time
	mu        sync.Mutex // one tick at a time
	lastRun   map[domain.ChannelID]time.Time
	logger    *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithImmediateBuyers makes every buyer eligible on the first tick instead
// of one interval after construction.
func WithImmediateBuyers() SchedulerOption {
	return func(s *Scheduler) { s.immediate = true }
}

// WithTwoSideInteraction suppresses the alliance and horde buyers. The
// neutral buyer is unaffected.
func WithTwoSideInteraction(allowed bool) SchedulerOption {
	return func(s *Scheduler) { s.twoSide = allowed }
}

// NewScheduler creates a Scheduler acting as who.
func NewScheduler(who domain.Participant, registry *Registry, seller *Seller, buyer *Buyer, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		who:      who,
		registry: registry,
		seller:   seller,
		buyer:    buyer,
		now:      time.Now,
		lastRun:  make(map[domain.ChannelID]time.Time),
		logger:   logger.With(slog.String("component", "scheduler")),
	}
	for _, o := range opts {
		o(s)
	}
	start := s.now()
	if s.immediate {
		start = time.Time{}
	}
	for _, ch := range domain.Channels {
		s.lastRun[ch] = start
	}
	return s
}

// Tick runs one pass over alliance, horde and neutral in that order.
// Channels without configuration are skipped.
func (s *Scheduler) Tick(ctx context.Context) domain.TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rep := domain.TickReport{StartedAt: now}

	for _, ch := range domain.Channels {
		cfg := s.registry.Snapshot(ch)
		if cfg == nil {
			continue
		}
		cr := domain.ChannelReport{Channel: ch, ConfigVersion: cfg.Version}

		sell := s.seller.Sell(ctx, s.who, cfg)
		cr.Sell = &sell

		if s.buyerDue(ch, cfg, now) {
			buy := s.buyer.Buy(ctx, s.who, cfg)
			cr.Buy = &buy
			s.lastRun[ch] = now
		}
		rep.Channels = append(rep.Channels, cr)
	}

	rep.FinishedAt = s.now()
	s.logger.DebugContext(ctx, "tick finished",
		slog.Int("channels", len(rep.Channels)),
		slog.Int("errors", rep.Errors()),
		slog.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)),
	)
	return rep
}

func (s *Scheduler) buyerDue(ch domain.ChannelID, cfg *domain.ChannelConfig, now time.Time) bool {
	if ch.Faction() && s.twoSide {
		return false
	}
	if cfg.BidsPerInterval <= 0 {
		return false
	}
	return now.Sub(s.lastRun[ch]) >= cfg.BiddingInterval
}

// LastRun reports when ch's buyer last ran.
func (s *Scheduler) LastRun(ch domain.ChannelID) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[ch]
}
