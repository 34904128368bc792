package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/ahbot"
	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/store/memory"
)

var (
	quietLogs = slog.New(slog.NewTextHandler(io.Discard, nil))
	testBot   = domain.Participant{Account: 1, GUID: 100, Name: "Auctioneer"}
)

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
	streams   map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: map[string][][]byte{}, streams: map[string][][]byte{}}
}

func (b *fakeBus) Publish(_ context.Context, ch string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[ch] = append(b.published[ch], payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams[stream] = append(b.streams[stream], payload)
	return nil
}

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func (b *fakeBus) count(ch string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[ch])
}

type fakeBlob struct {
	puts map[string][]byte
}

func (f *fakeBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[path] = b
	return nil
}

func (f *fakeBlob) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return f.Put(ctx, path, data, "")
}

func baseChannel(ch domain.ChannelID) domain.ChannelConfig {
	cfg := domain.ChannelConfig{
		Channel:       ch,
		SellerEnabled: true,
		BuyerEnabled:  true,
		MaxItems:      10,
		ItemsPerCycle: 5,
	}
	for q := range cfg.Qualities {
		cfg.Qualities[q] = domain.QualityTuning{MinPrice: 100, MaxPrice: 200, MinBidPrice: 50, MaxBidPrice: 90, BuyerPrice: 1}
	}
	return cfg
}

func TestMailServiceAmounts(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	mail := NewMailService(2)
	l := domain.Listing{ID: 9, Owner: 7, Bidder: 8, Bid: 1000, Deposit: 30, ItemID: 5, ItemGUID: 55}

	err := ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		if err := mail.SendOutbidRefund(ctx, tx, l, 1200); err != nil {
			return err
		}
		won := l
		won.Bidder, won.Bid = testBot.GUID, 1500
		if err := mail.SendSaleSuccess(ctx, tx, won, 5); err != nil {
			return err
		}
		return mail.SendAuctionWon(ctx, tx, won)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	got := ledger.Mail()
	if len(got) != 3 {
		t.Fatalf("mail=%d want=3", len(got))
	}
	if got[0].Kind != domain.MailOutbid || got[0].Recipient != 8 || got[0].Money != 1000 {
		t.Fatalf("refund=%+v", got[0])
	}
	if got[1].Kind != domain.MailSaleSuccess || got[1].Recipient != 7 || got[1].Cut != 75 || got[1].Money != 1500-75+30 {
		t.Fatalf("sale=%+v", got[1])
	}
	if got[2].Kind != domain.MailAuctionWon || got[2].Recipient != testBot.GUID || got[2].ItemGUID != 55 {
		t.Fatalf("won=%+v", got[2])
	}
}

func TestMailServiceNoRefundWithoutBidder(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewLedger()
	err := ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
		return NewMailService(2).SendOutbidRefund(ctx, tx, domain.Listing{ID: 1, StartBid: 10}, 20)
	})
	if err != nil || len(ledger.Mail()) != 0 {
		t.Fatalf("err=%v mail=%d want none", err, len(ledger.Mail()))
	}
}

func TestBinServiceLoad(t *testing.T) {
	catalog := memory.NewCatalog(
		domain.ItemTemplate{ID: 1, Quality: domain.QualityWhite, Class: domain.ItemClassTradeGoods, SellPrice: 5},
		domain.ItemTemplate{ID: 2, Quality: domain.QualityBlue, Class: 4, SellPrice: 500},
		domain.ItemTemplate{ID: 3, Quality: domain.QualityBlue, Class: 4},
		domain.ItemTemplate{ID: 4, Quality: 9, Class: 4, SellPrice: 5},
		domain.ItemTemplate{ID: 5, Quality: domain.QualityGreen, Class: 2, SellPrice: 50},
	)
	cases := []struct {
		name string
		opts BinOptions
		want map[domain.Category][]int64
	}{
		{"default", BinOptions{DisabledItems: []int64{5}}, map[domain.Category][]int64{
			1: {1}, 10: {2},
		}},
		{"zero price", BinOptions{IncludeZeroPrice: true}, map[domain.Category][]int64{
			1: {1}, 9: {5}, 10: {2, 3},
		}},
	}
	for _, tc := range cases {
		bins, err := NewBinService(catalog, tc.opts, quietLogs).Load(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		total := 0
		for c, ids := range tc.want {
			total += len(ids)
			if len(bins[c]) != len(ids) {
				t.Fatalf("%s: bin %v=%v want=%v", tc.name, c, bins[c], ids)
			}
			for i := range ids {
				if bins[c][i] != ids[i] {
					t.Fatalf("%s: bin %v=%v want=%v", tc.name, c, bins[c], ids)
				}
			}
		}
		if bins.Size() != total {
			t.Fatalf("%s: size=%d want=%d", tc.name, bins.Size(), total)
		}
	}
}

func newAdmin(t *testing.T) (*AdminService, *ahbot.Registry, *memory.ChannelConfigStore, *memory.AuditStore, *fakeBus, *memory.Ledger) {
	t.Helper()
	reg := ahbot.NewRegistry(baseChannel(domain.ChannelAlliance), baseChannel(domain.ChannelHorde), baseChannel(domain.ChannelNeutral))
	store := memory.NewChannelConfigStore()
	audit := memory.NewAuditStore()
	bus := newFakeBus()
	ledger := memory.NewLedger()
	return NewAdminService(testBot, reg, store, ledger, audit, bus, quietLogs), reg, store, audit, bus, ledger
}

func TestAdminPerChannelCommands(t *testing.T) {
	ctx := context.Background()
	admin, reg, store, audit, bus, _ := newAdmin(t)

	cases := []struct {
		cmd   Command
		check func(c *domain.ChannelConfig) bool
	}{
		{Command{Name: "minitems", Args: []string{"4"}}, func(c *domain.ChannelConfig) bool { return c.MinItems == 4 }},
		{Command{Name: "maxitems", Args: []string{"40"}}, func(c *domain.ChannelConfig) bool { return c.MaxItems == 40 }},
		{Command{Name: "bidinterval", Args: []string{"3"}}, func(c *domain.ChannelConfig) bool { return c.BiddingInterval == 3*time.Minute }},
		{Command{Name: "bidsperinterval", Args: []string{"12"}}, func(c *domain.ChannelConfig) bool { return c.BidsPerInterval == 12 }},
		{Command{Name: "maxprice", Quality: "blue", Args: []string{"400"}}, func(c *domain.ChannelConfig) bool { return c.Qualities[domain.QualityBlue].MaxPrice == 400 }},
		{Command{Name: "minprice", Quality: "3", Args: []string{"150"}}, func(c *domain.ChannelConfig) bool { return c.Qualities[domain.QualityBlue].MinPrice == 150 }},
		{Command{Name: "maxbidprice", Quality: "green", Args: []string{"95"}}, func(c *domain.ChannelConfig) bool { return c.Qualities[domain.QualityGreen].MaxBidPrice == 95 }},
		{Command{Name: "minbidprice", Quality: "green", Args: []string{"60"}}, func(c *domain.ChannelConfig) bool { return c.Qualities[domain.QualityGreen].MinBidPrice == 60 }},
		{Command{Name: "maxstack", Quality: "white", Args: []string{"5"}}, func(c *domain.ChannelConfig) bool { return c.Qualities[domain.QualityWhite].MaxStack == 5 }},
		{Command{Name: "buyerprice", Quality: "purple", Args: []string{"2.5"}}, func(c *domain.ChannelConfig) bool { return c.Qualities[domain.QualityPurple].BuyerPrice == 2.5 }},
		{Command{Name: "percentages", Args: []string{"0", "10", "10", "5", "0", "0", "0", "0", "20", "20", "20", "10", "5", "0"}}, func(c *domain.ChannelConfig) bool {
			return c.Percentages[1] == 10 && c.Percentages[12] == 5
		}},
	}
	for i, tc := range cases {
		res, err := admin.Execute(ctx, domain.ChannelHorde, tc.cmd)
		if err != nil {
			t.Fatalf("%s: %v", tc.cmd.Name, err)
		}
		live := reg.Snapshot(domain.ChannelHorde)
		if !tc.check(live) {
			t.Fatalf("%s: live config not updated: %+v", tc.cmd.Name, live)
		}
		if live.Version != int64(i+1) || len(res.Channels) != 1 {
			t.Fatalf("%s: version=%d channels=%d", tc.cmd.Name, live.Version, len(res.Channels))
		}
		saved, err := store.Load(ctx, domain.ChannelHorde)
		if err != nil || saved.Version != live.Version {
			t.Fatalf("%s: persisted version=%d err=%v", tc.cmd.Name, saved.Version, err)
		}
	}
	if reg.Snapshot(domain.ChannelAlliance).Version != 0 {
		t.Fatalf("per-channel command leaked into alliance")
	}
	entries, _ := audit.List(ctx, domain.ListOpts{})
	if len(entries) != len(cases) || bus.count(TopicConfig) != len(cases) {
		t.Fatalf("audit=%d published=%d want=%d", len(entries), bus.count(TopicConfig), len(cases))
	}
}

func TestAdminGlobalCommands(t *testing.T) {
	ctx := context.Background()
	admin, reg, _, _, _, _ := newAdmin(t)

	res, err := admin.Execute(ctx, domain.ChannelNeutral, Command{Name: "buyer", Args: []string{"0"}})
	if err != nil {
		t.Fatalf("buyer: %v", err)
	}
	if len(res.Channels) != 3 {
		t.Fatalf("channels=%d want=3", len(res.Channels))
	}
	for _, ch := range domain.Channels {
		if reg.Snapshot(ch).BuyerEnabled {
			t.Fatalf("%v buyer still enabled", ch)
		}
	}
	if _, err := admin.Execute(ctx, domain.ChannelNeutral, Command{Name: "usemarketprice", Args: []string{"1"}}); err != nil {
		t.Fatalf("usemarketprice: %v", err)
	}
	if !reg.Snapshot(domain.ChannelAlliance).SellAtMarketPrice {
		t.Fatalf("usemarketprice did not reach alliance")
	}
}

func TestAdminRejectsBadCommands(t *testing.T) {
	ctx := context.Background()
	admin, reg, _, _, _, _ := newAdmin(t)
	cases := []Command{
		{Name: "frobnicate"},
		{Name: "minitems"},
		{Name: "minitems", Args: []string{"-3"}},
		{Name: "maxprice", Quality: "mauve", Args: []string{"1"}},
		{Name: "percentages", Args: []string{"1", "2"}},
		{Name: "percentages", Args: []string{"50", "60", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0", "0"}},
		{Name: "maxbidprice", Quality: "blue", Args: []string{"150"}},
		{Name: "minprice", Quality: "blue", Args: []string{"900"}},
		{Name: "buyerprice", Quality: "blue", Args: []string{"lots"}},
		{Name: "buyerprice", Quality: "blue", Args: []string{"NaN"}},
		{Name: "buyerprice", Quality: "blue", Args: []string{"Inf"}},
		{Name: "buyerprice", Quality: "blue", Args: []string{"+Inf"}},
	}
	for _, cmd := range cases {
		if _, err := admin.Execute(ctx, domain.ChannelAlliance, cmd); !errors.Is(err, domain.ErrInvalidCommand) {
			t.Fatalf("%+v: err=%v want=%v", cmd, err, domain.ErrInvalidCommand)
		}
	}
	if v := reg.Snapshot(domain.ChannelAlliance).Version; v != 0 {
		t.Fatalf("version=%d after rejected commands", v)
	}
}

func TestAdminExpireAndRestore(t *testing.T) {
	ctx := context.Background()
	admin, reg, store, _, _, ledger := newAdmin(t)
	future := time.Now().Add(time.Hour)
	ledger.Put(domain.Listing{Channel: domain.ChannelHorde, Owner: testBot.GUID, ExpiresAt: future}, domain.Item{})
	ledger.Put(domain.Listing{Channel: domain.ChannelHorde, Owner: 7, ExpiresAt: future}, domain.Item{})

	res, err := admin.Execute(ctx, domain.ChannelHorde, Command{Name: "expire"})
	if err != nil || res.Expired != 1 {
		t.Fatalf("expired=%d err=%v want=1", res.Expired, err)
	}

	persisted := baseChannel(domain.ChannelNeutral)
	persisted.MaxItems, persisted.Version = 77, 9
	_ = store.Save(ctx, persisted)
	if err := admin.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := reg.Snapshot(domain.ChannelNeutral); got.MaxItems != 77 || got.Version != 9 {
		t.Fatalf("restored=%+v", got)
	}
	if _, err := store.Load(ctx, domain.ChannelAlliance); err != nil {
		t.Fatalf("alliance defaults not seeded: %v", err)
	}
}

type fakeTicker struct {
	rep   domain.TickReport
	calls int
}

func (f *fakeTicker) Tick(context.Context) domain.TickReport {
	f.calls++
	return f.rep
}

type fakeLocks struct{ held bool }

func (l *fakeLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.held = true
	return func() { l.held = false }, nil
}

type fakeAlerter struct{ events []string }

func (a *fakeAlerter) Notify(_ context.Context, event, _, _ string) error {
	a.events = append(a.events, event)
	return nil
}

func TestTickServiceRunOnce(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	ticker := &fakeTicker{rep: domain.TickReport{
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Channels: []domain.ChannelReport{
			{Channel: domain.ChannelNeutral, Sell: &domain.SellReport{Requested: 3, Created: 2, Errors: 1}},
		},
	}}
	locks := &fakeLocks{}
	audit := memory.NewAuditStore()
	bus := newFakeBus()
	blob := &fakeBlob{}
	alerts := &fakeAlerter{}
	svc := NewTickService(TickDeps{
		Ticker:   ticker,
		Locks:    locks,
		Audit:    audit,
		Bus:      bus,
		Archiver: NewReportArchiver(blob, ""),
		Alerter:  alerts,
	}, quietLogs)

	if _, ok := svc.Last(); ok {
		t.Fatalf("last report before any tick")
	}
	rep, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if rep.ID == "" || locks.held {
		t.Fatalf("id=%q lock held=%v", rep.ID, locks.held)
	}
	if last, ok := svc.Last(); !ok || last.ID != rep.ID {
		t.Fatalf("last=%+v", last)
	}
	if bus.count(TopicTicks) != 1 || len(bus.streams[StreamTicks]) != 1 {
		t.Fatalf("published=%d streamed=%d", bus.count(TopicTicks), len(bus.streams[StreamTicks]))
	}
	entries, _ := audit.List(ctx, domain.ListOpts{})
	if len(entries) != 1 || entries[0].Event != "tick" {
		t.Fatalf("audit=%+v", entries)
	}
	if len(alerts.events) != 1 || alerts.events[0] != "tick_errors" {
		t.Fatalf("alerts=%v", alerts.events)
	}

	key := "reports/2026/05/04/" + rep.ID + ".json.zst"
	data, ok := blob.puts[key]
	if !ok {
		t.Fatalf("archive %s missing; have %v", key, blob.puts)
	}
	decoded, err := DecodeReport(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != rep.ID || decoded.Errors() != 1 || decoded.Channels[0].Sell.Created != 2 {
		t.Fatalf("decoded=%+v", decoded)
	}
}

func TestTickServiceSkipsWhenLocked(t *testing.T) {
	ticker := &fakeTicker{}
	svc := NewTickService(TickDeps{
		Ticker: ticker,
		Locks:  &fakeLocks{held: true},
		Audit:  memory.NewAuditStore(),
	}, quietLogs)
	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err=%v want=%v", err, domain.ErrLockHeld)
	}
	if ticker.calls != 0 {
		t.Fatalf("ticked %d times while locked", ticker.calls)
	}
}

type fakeSweeper struct {
	purged int
	at     time.Time
}

func (f *fakeSweeper) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	f.at = now
	return f.purged, nil
}

func TestTickServiceSweepsExpiredListings(t *testing.T) {
	ctx := context.Background()
	sweeper := &fakeSweeper{purged: 3}
	audit := memory.NewAuditStore()
	svc := NewTickService(TickDeps{
		Ticker:  &fakeTicker{},
		Audit:   audit,
		Sweeper: sweeper,
	}, quietLogs)

	rep, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if rep.Purged != 3 || sweeper.at.IsZero() {
		t.Fatalf("purged=%d swept at %v", rep.Purged, sweeper.at)
	}
	entries, _ := audit.List(ctx, domain.ListOpts{})
	if len(entries) != 1 || entries[0].Detail["purged"] != 3 {
		t.Fatalf("audit=%+v", entries)
	}
}

func TestEncodeReportIsCompressed(t *testing.T) {
	rep := domain.TickReport{ID: "x"}
	for range 200 {
		rep.Channels = append(rep.Channels, domain.ChannelReport{Channel: domain.ChannelHorde, Sell: &domain.SellReport{}})
	}
	data, err := EncodeReport(rep)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Fatalf("missing zstd magic: % x", data[:4])
	}
	if len(data) > 1000 {
		t.Fatalf("compressed size=%d, expected repetition to compress", len(data))
	}
}
