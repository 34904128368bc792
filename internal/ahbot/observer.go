package ahbot

import (
	"context"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Observer is told about every ledger change the engine commits. Calls
// happen after the transaction and must not block for long.
type Observer interface {
	ListingCreated(ctx context.Context, l domain.Listing)
	BidPlaced(ctx context.Context, l domain.Listing)
	BoughtOut(ctx context.Context, l domain.Listing)
}

type nopObserver struct{}

func (nopObserver) ListingCreated(context.Context, domain.Listing) {}
func (nopObserver) BidPlaced(context.Context, domain.Listing)      {}
func (nopObserver) BoughtOut(context.Context, domain.Listing)      {}

// Mailer queues auction mail inside the caller's ledger transaction.
type Mailer interface {
	SendOutbidRefund(ctx context.Context, tx domain.LedgerTx, l domain.Listing, newBid int64) error
	SendSaleSuccess(ctx context.Context, tx domain.LedgerTx, l domain.Listing, cutPercent int) error
	SendAuctionWon(ctx context.Context, tx domain.LedgerTx, l domain.Listing) error
}
