package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/ahbot"
	"github.com/alanyoungcy/auctionbot/internal/domain"
)

var _ ahbot.Mailer = (*MailService)(nil)

// MailService builds auction mail and queues it inside the caller's ledger
// transaction, so mail is delivered exactly when the listing change commits.
type MailService struct {
	sender int64 // GUID shown as the sender of auction house mail
	now    func() time.Time
}

// NewMailService creates a MailService. sender is the auction house
// identity mail is sent from.
func NewMailService(sender int64) *MailService {
	return &MailService{sender: sender, now: time.Now}
}

// SendOutbidRefund returns the displaced bidder's money.
func (s *MailService) SendOutbidRefund(ctx context.Context, tx domain.LedgerTx, l domain.Listing, newBid int64) error {
	if !l.HasBidder() {
		return nil
	}
	m := s.mail(domain.MailOutbid, l, l.Bidder)
	m.Money = l.Bid
	if err := tx.QueueMail(ctx, m); err != nil {
		return fmt.Errorf("mail_service: outbid refund for listing %d (new bid %d): %w", l.ID, newBid, err)
	}
	return nil
}

// SendSaleSuccess pays the seller the winning bid minus the house cut, and
// returns the deposit.
func (s *MailService) SendSaleSuccess(ctx context.Context, tx domain.LedgerTx, l domain.Listing, cutPercent int) error {
	cut := l.Bid * int64(cutPercent) / 100
	m := s.mail(domain.MailSaleSuccess, l, l.Owner)
	m.Money = l.Bid - cut + l.Deposit
	m.Deposit = l.Deposit
	m.Cut = cut
	if err := tx.QueueMail(ctx, m); err != nil {
		return fmt.Errorf("mail_service: sale success for listing %d: %w", l.ID, err)
	}
	return nil
}

// SendAuctionWon delivers the item to the winning bidder.
func (s *MailService) SendAuctionWon(ctx context.Context, tx domain.LedgerTx, l domain.Listing) error {
	m := s.mail(domain.MailAuctionWon, l, l.Bidder)
	m.ItemGUID = l.ItemGUID
	if err := tx.QueueMail(ctx, m); err != nil {
		return fmt.Errorf("mail_service: auction won for listing %d: %w", l.ID, err)
	}
	return nil
}

func (s *MailService) mail(kind domain.MailKind, l domain.Listing, to int64) domain.Mail {
	return domain.Mail{
		Kind:      kind,
		Sender:    s.sender,
		Recipient: to,
		ListingID: l.ID,
		ItemID:    l.ItemID,
		CreatedAt: s.now(),
	}
}
