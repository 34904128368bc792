package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/config"
	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/store/memory"
)

const seedYAML = `
items:
  - {id: 2589, name: Linen Cloth, quality: 1, class: 7, buy_price: 100, sell_price: 25, max_stack: 20}
  - {id: 2840, name: Copper Bar, quality: 1, class: 7, buy_price: 200, sell_price: 50, max_stack: 20}
  - {id: 2488, name: Gladius, quality: 1, class: 2, buy_price: 1500, sell_price: 300, max_stack: 1}
market_prices:
  2589: 120
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	cfg := config.Defaults()
	cfg.Mode = "once"
	cfg.Bot.GUID = 100
	cfg.Bot.Seed = 42
	cfg.Storage.SeedPath = path
	cfg.Server.Enabled = false
	cfg.Channels.Horde.Enabled = false
	cfg.Channels.Neutral.Enabled = false
	cfg.Channels.Alliance.MaxItems = 40
	cfg.Channels.Alliance.ItemsPerCycle = 40
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return &cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWireMemoryDriver(t *testing.T) {
	cfg := testConfig(t)
	deps, cleanup, err := Wire(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	defer cleanup()

	if deps.Bus != nil || deps.LockManager != nil || deps.Blob != nil {
		t.Fatalf("redis/s3 adapters wired without being enabled")
	}
	tmpl, err := deps.Catalog.GetItemTemplate(context.Background(), 2840)
	if err != nil || tmpl.Name != "Copper Bar" {
		t.Fatalf("template=%+v err=%v", tmpl, err)
	}
	if p, err := deps.Prices.Price(context.Background(), 2589); err != nil || p != 120 {
		t.Fatalf("price=%d err=%v want=120", p, err)
	}
}

func TestWireRejectsMissingSeed(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.SeedPath = filepath.Join(t.TempDir(), "missing.yaml")
	if _, _, err := Wire(context.Background(), cfg, testLogger()); err == nil {
		t.Fatalf("expected error for missing seed file")
	}
}

func TestOnceMode(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	deps, cleanup, err := Wire(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("wire: %v", err)
	}
	defer cleanup()

	ledger := deps.Ledger.(*memory.Ledger)
	ledger.Put(domain.Listing{
		Channel:   domain.ChannelAlliance,
		Owner:     7,
		ItemGUID:  5,
		ItemID:    2840,
		Count:     1,
		StartBid:  10,
		Buyout:    100000,
		ExpiresAt: time.Now().Add(time.Hour),
	}, domain.Item{GUID: 5, ItemID: 2840, Owner: 7, Count: 1})

	a := New(cfg, testLogger())
	rep, err := a.OnceMode(ctx, deps)
	if err != nil {
		t.Fatalf("once: %v", err)
	}
	if rep.ID == "" {
		t.Fatalf("report has no id")
	}
	if len(rep.Channels) != 1 || rep.Channels[0].Channel != domain.ChannelAlliance {
		t.Fatalf("channels=%+v want alliance only", rep.Channels)
	}
	sell := rep.Channels[0].Sell
	if sell == nil || sell.Created == 0 {
		t.Fatalf("sell report=%+v want listings created", sell)
	}
	if rep.Channels[0].Buy == nil {
		t.Fatalf("buyer did not run on the first tick")
	}

	bot, err := deps.Ledger.CountListings(ctx, domain.ChannelAlliance, domain.ListingFilter{Owner: cfg.Bot.GUID})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if bot != sell.Created {
		t.Fatalf("bot listings=%d want=%d", bot, sell.Created)
	}

	entries, err := deps.Audit.List(ctx, domain.ListOpts{})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(entries) == 0 || entries[0].Event != "tick" {
		t.Fatalf("audit=%+v want a tick entry first", entries)
	}
}
