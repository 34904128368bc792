package domain

import "time"

// Listing is an active offer on the auction ledger.
type Listing struct {
	ID        int64     `json:"id"`
	Channel   ChannelID `json:"channel"`
	Owner     int64     `json:"owner"`
	Bidder    int64     `json:"bidder,omitempty"` // 0 when nobody has bid
	ItemGUID  int64     `json:"item_guid"`
	ItemID    int64     `json:"item_id"`
	Count     int       `json:"count"`
	StartBid  int64     `json:"start_bid"`
	Bid       int64     `json:"bid"`
	Buyout    int64     `json:"buyout"`
	Deposit   int64     `json:"deposit"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CurrentPrice is the amount the next bid has to beat.
func (l Listing) CurrentPrice() int64 {
	if l.Bid != 0 {
		return l.Bid
	}
	return l.StartBid
}

// MinimumOutbid is the smallest legal raise over the current bid: 5% of it,
// and never less than one copper.
func (l Listing) MinimumOutbid() int64 {
	if out := l.Bid * 5 / 100; out > 0 {
		return out
	}
	return 1
}

// HasBuyout reports whether the listing can be bought immediately.
func (l Listing) HasBuyout() bool {
	return l.Buyout > 0
}

// HasBidder reports whether someone currently holds the high bid.
func (l Listing) HasBidder() bool {
	return l.Bidder != 0
}

// ListingFilter narrows ledger listing queries. Zero values disable a clause.
type ListingFilter struct {
	Owner         int64
	ExcludeOwner  int64
	ExcludeBidder int64
	// ActiveAt excludes listings that expired before the given instant.
	ActiveAt time.Time
}

// Matches applies the filter to a single listing. Ledger adapters that
// cannot push a clause down to storage use it as a fallback.
func (f ListingFilter) Matches(l Listing) bool {
	if f.Owner != 0 && l.Owner != f.Owner {
		return false
	}
	if f.ExcludeOwner != 0 && l.Owner == f.ExcludeOwner {
		return false
	}
	if f.ExcludeBidder != 0 && l.Bidder == f.ExcludeBidder {
		return false
	}
	if !f.ActiveAt.IsZero() && !l.ExpiresAt.After(f.ActiveAt) {
		return false
	}
	return true
}
