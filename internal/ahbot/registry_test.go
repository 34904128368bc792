package ahbot

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

func TestRegistryUpdateSwapsSnapshot(t *testing.T) {
	reg := NewRegistry(*testChannel(domain.ChannelAlliance))
	before := reg.Snapshot(domain.ChannelAlliance)

	after, err := reg.Update(domain.ChannelAlliance, func(c *domain.ChannelConfig) error {
		c.MaxItems = 50
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if before.MaxItems != 10 {
		t.Fatalf("old snapshot mutated: max=%d", before.MaxItems)
	}
	if after.MaxItems != 50 || after.Version != before.Version+1 {
		t.Fatalf("new snapshot max=%d version=%d", after.MaxItems, after.Version)
	}
	if reg.Snapshot(domain.ChannelAlliance) != after {
		t.Fatalf("registry does not serve the new snapshot")
	}
}

func TestRegistryRejectsInvalidUpdates(t *testing.T) {
	reg := NewRegistry(*testChannel(domain.ChannelNeutral))
	before := reg.Snapshot(domain.ChannelNeutral)

	_, err := reg.Update(domain.ChannelNeutral, func(c *domain.ChannelConfig) error {
		c.Percentages[0] = 60
		c.Percentages[1] = 60
		return nil
	})
	if !errors.Is(err, domain.ErrInvalidCommand) {
		t.Fatalf("err=%v want=%v", err, domain.ErrInvalidCommand)
	}
	if reg.Snapshot(domain.ChannelNeutral) != before {
		t.Fatalf("snapshot replaced by invalid update")
	}

	if _, err := reg.Update(domain.ChannelHorde, func(*domain.ChannelConfig) error { return nil }); !errors.Is(err, domain.ErrUnknownChannel) {
		t.Fatalf("err=%v want=%v", err, domain.ErrUnknownChannel)
	}
	if reg.Snapshot(domain.ChannelHorde) != nil {
		t.Fatalf("unconfigured channel has a snapshot")
	}
}

func TestRegistryUpdateAllIsAllOrNothing(t *testing.T) {
	reg := NewRegistry(*testChannel(domain.ChannelAlliance), *testChannel(domain.ChannelHorde), *testChannel(domain.ChannelNeutral))
	chs := reg.Channels()

	// Valid everywhere except horde.
	_, err := reg.UpdateAll(chs, func(c *domain.ChannelConfig) error {
		c.MaxItems = 25
		if c.Channel == domain.ChannelHorde {
			c.Qualities[domain.QualityBlue].BuyerPrice = math.NaN()
		}
		return nil
	})
	if !errors.Is(err, domain.ErrInvalidCommand) {
		t.Fatalf("err=%v want=%v", err, domain.ErrInvalidCommand)
	}
	for _, ch := range chs {
		if got := reg.Snapshot(ch); got.Version != 0 || got.MaxItems != 10 {
			t.Fatalf("%s changed by failed update: version=%d max=%d", ch, got.Version, got.MaxItems)
		}
	}

	updated, err := reg.UpdateAll(chs, func(c *domain.ChannelConfig) error {
		c.MaxItems = 25
		return nil
	})
	if err != nil || len(updated) != len(chs) {
		t.Fatalf("updated=%d err=%v", len(updated), err)
	}
	for i, ch := range chs {
		if reg.Snapshot(ch) != updated[i] || updated[i].Version != 1 {
			t.Fatalf("%s: snapshot not swapped", ch)
		}
	}
}

func TestRegistryConcurrentUpdates(t *testing.T) {
	reg := NewRegistry(*testChannel(domain.ChannelNeutral))
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = reg.Update(domain.ChannelNeutral, func(c *domain.ChannelConfig) error {
				c.BidsPerInterval++
				return nil
			})
			_ = reg.Snapshot(domain.ChannelNeutral).BidsPerInterval
		}()
	}
	wg.Wait()
	got := reg.Snapshot(domain.ChannelNeutral)
	if got.BidsPerInterval != 55 || got.Version != 50 {
		t.Fatalf("bids=%d version=%d want 55/50", got.BidsPerInterval, got.Version)
	}
}
