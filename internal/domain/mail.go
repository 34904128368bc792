package domain

import "time"

// MailKind identifies the auction notification being delivered.
type MailKind string

const (
	MailOutbid      MailKind = "outbid"
	MailSaleSuccess MailKind = "sale_success"
	MailAuctionWon  MailKind = "auction_won"
)

// Mail is a queued in-game letter. Money is refunded or paid out on
// delivery; ItemGUID, when set, is attached.
type Mail struct {
	ID        int64     `json:"id"`
	Kind      MailKind  `json:"kind"`
	Sender    int64     `json:"sender"`
	Recipient int64     `json:"recipient"`
	ListingID int64     `json:"listing_id"`
	ItemID    int64     `json:"item_id"`
	ItemGUID  int64     `json:"item_guid,omitempty"`
	Money     int64     `json:"money"`
	Deposit   int64     `json:"deposit,omitempty"`
	Cut       int64     `json:"cut,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
