package ahbot

import (
	"context"
	"testing"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/store/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(clock *fakeClock, reg *Registry, opts ...SchedulerOption) *Scheduler {
	catalog, bins := stockedCatalog()
	ledger := memory.NewLedger()
	seller := newTestSeller(ledger, catalog, bins, NewRand(1))
	buyer := newTestBuyer(ledger, catalog, &recordingMailer{}, NewRand(2))
	opts = append([]SchedulerOption{WithClock(clock.Now)}, opts...)
	return NewScheduler(testBot, reg, seller, buyer, quietLogs, opts...)
}

func buyerRan(rep domain.TickReport, ch domain.ChannelID) bool {
	for _, c := range rep.Channels {
		if c.Channel == ch {
			return c.Buy != nil
		}
	}
	return false
}

func TestSchedulerThrottlesBuyer(t *testing.T) {
	clock := &fakeClock{t: testNow}
	cfg := testChannel(domain.ChannelNeutral)
	cfg.BiddingInterval = 10 * time.Minute
	s := newTestScheduler(clock, NewRegistry(*cfg))

	if rep := s.Tick(context.Background()); buyerRan(rep, domain.ChannelNeutral) {
		t.Fatalf("buyer ran before one interval elapsed")
	}
	clock.Advance(9 * time.Minute)
	if rep := s.Tick(context.Background()); buyerRan(rep, domain.ChannelNeutral) {
		t.Fatalf("buyer ran after 9m")
	}
	clock.Advance(time.Minute)
	rep := s.Tick(context.Background())
	if !buyerRan(rep, domain.ChannelNeutral) {
		t.Fatalf("buyer did not run after exactly one interval")
	}
	if rep.Channels[0].Sell == nil {
		t.Fatalf("seller did not run")
	}
	if got := s.LastRun(domain.ChannelNeutral); !got.Equal(clock.t) {
		t.Fatalf("last run=%v want=%v", got, clock.t)
	}
	clock.Advance(time.Minute)
	if rep := s.Tick(context.Background()); buyerRan(rep, domain.ChannelNeutral) {
		t.Fatalf("buyer ran again before the next interval")
	}
}

func TestSchedulerImmediateBuyers(t *testing.T) {
	clock := &fakeClock{t: testNow}
	cfg := testChannel(domain.ChannelHorde)
	cfg.BiddingInterval = time.Hour
	s := newTestScheduler(clock, NewRegistry(*cfg), WithImmediateBuyers())
	if rep := s.Tick(context.Background()); !buyerRan(rep, domain.ChannelHorde) {
		t.Fatalf("buyer did not run on first tick")
	}
}

func TestSchedulerZeroBidsPerInterval(t *testing.T) {
	clock := &fakeClock{t: testNow}
	cfg := testChannel(domain.ChannelNeutral)
	cfg.BidsPerInterval = 0
	s := newTestScheduler(clock, NewRegistry(*cfg), WithImmediateBuyers())
	if rep := s.Tick(context.Background()); buyerRan(rep, domain.ChannelNeutral) {
		t.Fatalf("buyer ran with zero bids per interval")
	}
}

func TestSchedulerTwoSideInteraction(t *testing.T) {
	reg := NewRegistry(*testChannel(domain.ChannelAlliance), *testChannel(domain.ChannelHorde), *testChannel(domain.ChannelNeutral))
	for _, allowed := range []bool{false, true} {
		clock := &fakeClock{t: testNow}
		s := newTestScheduler(clock, reg, WithImmediateBuyers(), WithTwoSideInteraction(allowed))
		rep := s.Tick(context.Background())

		if len(rep.Channels) != 3 {
			t.Fatalf("channels=%d want=3", len(rep.Channels))
		}
		order := []domain.ChannelID{domain.ChannelAlliance, domain.ChannelHorde, domain.ChannelNeutral}
		for i, c := range rep.Channels {
			if c.Channel != order[i] {
				t.Fatalf("channel #%d=%v want=%v", i, c.Channel, order[i])
			}
			if c.Sell == nil {
				t.Fatalf("%v: seller did not run", c.Channel)
			}
		}
		if got := buyerRan(rep, domain.ChannelAlliance); got == allowed {
			t.Fatalf("allowed=%v alliance buyer ran=%v", allowed, got)
		}
		if got := buyerRan(rep, domain.ChannelHorde); got == allowed {
			t.Fatalf("allowed=%v horde buyer ran=%v", allowed, got)
		}
		if !buyerRan(rep, domain.ChannelNeutral) {
			t.Fatalf("allowed=%v neutral buyer did not run", allowed)
		}
	}
}

func TestSchedulerSkipsUnconfiguredChannels(t *testing.T) {
	clock := &fakeClock{t: testNow}
	s := newTestScheduler(clock, NewRegistry(*testChannel(domain.ChannelHorde)))
	rep := s.Tick(context.Background())
	if len(rep.Channels) != 1 || rep.Channels[0].Channel != domain.ChannelHorde {
		t.Fatalf("channels=%+v want horde only", rep.Channels)
	}
}
