package ahbot

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
	"github.com/alanyoungcy/auctionbot/internal/store/memory"
)

var (
	testBot   = domain.Participant{Account: 1, GUID: 100, Name: "Auctioneer"}
	testNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quietLogs = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// maxRand always draws the top of every range.
type maxRand struct{}

func (maxRand) IntN(n int) int   { return n - 1 }
func (maxRand) Float64() float64 { return 0.999 }

// minRand always draws the bottom of every range.
type minRand struct{}

func (minRand) IntN(int) int     { return 0 }
func (minRand) Float64() float64 { return 0 }

func testChannel(ch domain.ChannelID) *domain.ChannelConfig {
	cfg := &domain.ChannelConfig{
		Channel:                 ch,
		SellerEnabled:           true,
		BuyerEnabled:            true,
		MinItems:                10,
		MaxItems:                10,
		ItemsPerCycle:           10,
		ConsiderOnlyBotListings: true,
		DurationClass:           domain.DurationLong,
		BiddingInterval:         time.Minute,
		BidsPerInterval:         5,
		DepositPercent:          5,
		CutPercent:              5,
	}
	for q := range cfg.Qualities {
		cfg.Qualities[q] = domain.QualityTuning{
			MinPrice: 100, MaxPrice: 300, MinBidPrice: 40, MaxBidPrice: 90, BuyerPrice: 1,
		}
	}
	return cfg
}

// recordingMailer queues mail in the ledger transaction and counts calls.
type recordingMailer struct {
	refunds, sales, won int
}

func (m *recordingMailer) SendOutbidRefund(ctx context.Context, tx domain.LedgerTx, l domain.Listing, newBid int64) error {
	m.refunds++
	return tx.QueueMail(ctx, domain.Mail{Kind: domain.MailOutbid, Recipient: l.Bidder, ListingID: l.ID, Money: l.Bid})
}

func (m *recordingMailer) SendSaleSuccess(ctx context.Context, tx domain.LedgerTx, l domain.Listing, cut int) error {
	m.sales++
	return tx.QueueMail(ctx, domain.Mail{Kind: domain.MailSaleSuccess, Recipient: l.Owner, ListingID: l.ID, Money: l.Bid})
}

func (m *recordingMailer) SendAuctionWon(ctx context.Context, tx domain.LedgerTx, l domain.Listing) error {
	m.won++
	return tx.QueueMail(ctx, domain.Mail{Kind: domain.MailAuctionWon, Recipient: l.Bidder, ListingID: l.ID})
}

// recordingLedger remembers every listing ID the buyer looked up.
type recordingLedger struct {
	*memory.Ledger
	fetched []int64
}

func (r *recordingLedger) GetListing(ctx context.Context, id int64) (domain.Listing, error) {
	r.fetched = append(r.fetched, id)
	return r.Ledger.GetListing(ctx, id)
}

// racingLedger lands one player bid after the buyer has read the listing
// but before its first transaction runs.
type racingLedger struct {
	*memory.Ledger
	listing, bidder, amount int64
	raced                   bool
}

func (r *racingLedger) WithTx(ctx context.Context, fn func(tx domain.LedgerTx) error) error {
	if !r.raced {
		r.raced = true
		err := r.Ledger.WithTx(ctx, func(tx domain.LedgerTx) error {
			return tx.UpdateBid(ctx, r.listing, r.bidder, r.amount)
		})
		if err != nil {
			return err
		}
	}
	return r.Ledger.WithTx(ctx, fn)
}

func newTestSeller(ledger domain.Ledger, catalog *memory.Catalog, bins *domain.Bins, r Rand) *Seller {
	s := NewSeller(SellerDeps{
		Ledger:  ledger,
		Catalog: catalog,
		Items:   memory.NewItemFactory(1000),
	}, bins, r, quietLogs)
	s.now = func() time.Time { return testNow }
	return s
}

func newTestBuyer(ledger domain.Ledger, catalog *memory.Catalog, mailer Mailer, r Rand) *Buyer {
	b := NewBuyer(BuyerDeps{
		Ledger:  ledger,
		Catalog: catalog,
		Mailer:  mailer,
		Bots:    domain.NewBotSet(testBot.GUID, 101),
	}, r, quietLogs)
	b.now = func() time.Time { return testNow }
	return b
}
