package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ChannelID identifies an auction house. The numeric values match the house
// IDs the game server uses.
type ChannelID int

const (
	ChannelAlliance ChannelID = 2
	ChannelHorde    ChannelID = 6
	ChannelNeutral  ChannelID = 7
)

// Channels lists every channel in scheduling order.
var Channels = []ChannelID{ChannelAlliance, ChannelHorde, ChannelNeutral}

func (c ChannelID) String() string {
	switch c {
	case ChannelAlliance:
		return "alliance"
	case ChannelHorde:
		return "horde"
	case ChannelNeutral:
		return "neutral"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Faction reports whether the channel belongs to one side of the two-faction
// split (as opposed to the neutral house).
func (c ChannelID) Faction() bool {
	return c == ChannelAlliance || c == ChannelHorde
}

// ParseChannel accepts a name ("horde") or house ID ("6").
func ParseChannel(s string) (ChannelID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alliance", "2":
		return ChannelAlliance, nil
	case "horde", "6":
		return ChannelHorde, nil
	case "neutral", "7":
		return ChannelNeutral, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// DurationClass selects the lifetime range of new listings.
type DurationClass int

const (
	DurationLong   DurationClass = 0
	DurationMedium DurationClass = 1
	DurationShort  DurationClass = 2
)

// QualityTuning holds the per-quality pricing and stacking knobs. Price
// fields are percentages of the baseline price; BuyerPrice multiplies the
// baseline to get the most the buyer will pay.
type QualityTuning struct {
	MinPrice    int     `json:"min_price"`
	MaxPrice    int     `json:"max_price"`
	MinBidPrice int     `json:"min_bid_price"`
	MaxBidPrice int     `json:"max_bid_price"`
	MaxStack    int     `json:"max_stack"`
	BuyerPrice  float64 `json:"buyer_price"`
}

// ChannelConfig is an immutable snapshot of one channel's tunables. Use
// Clone before mutating.
type ChannelConfig struct {
	Channel ChannelID `json:"channel"`
	Version int64     `json:"version"`

	SellerEnabled bool `json:"seller_enabled"`
	BuyerEnabled  bool `json:"buyer_enabled"`

	MinItems                int           `json:"min_items"`
	MaxItems                int           `json:"max_items"`
	ItemsPerCycle           int           `json:"items_per_cycle"`
	ConsiderOnlyBotListings bool          `json:"consider_only_bot_listings"`
	DivisibleStacks         bool          `json:"divisible_stacks"`
	DurationClass           DurationClass `json:"duration_class"`
	DuplicatesCount         int           `json:"duplicates_count"`
	SellAtMarketPrice       bool          `json:"sell_at_market_price"`
	UseBuyPriceForSeller    bool          `json:"use_buy_price_for_seller"`
	UseBuyPriceForBuyer     bool          `json:"use_buy_price_for_buyer"`

	BiddingInterval time.Duration `json:"bidding_interval"`
	BidsPerInterval int           `json:"bids_per_interval"`

	// Percentages is each category's share of MaxItems.
	Percentages [CategoryCount]int          `json:"percentages"`
	Qualities   [QualityCount]QualityTuning `json:"qualities"`

	DepositPercent int `json:"deposit_percent"`
	CutPercent     int `json:"cut_percent"`

	DebugSeller bool `json:"debug_seller"`
	DebugBuyer  bool `json:"debug_buyer"`
	TraceSeller bool `json:"trace_seller"`
	TraceBuyer  bool `json:"trace_buyer"`
}

// Clone returns a deep copy. Arrays copy by value, so a shallow struct copy
// is sufficient today.
func (c *ChannelConfig) Clone() *ChannelConfig {
	out := *c
	return &out
}

// Tuning returns the knobs for quality q.
func (c *ChannelConfig) Tuning(q Quality) QualityTuning {
	if !q.Supported() {
		return QualityTuning{}
	}
	return c.Qualities[q]
}

// EffectiveMinItems is the listing count below which the seller restocks.
// Zero, or anything above MaxItems, means MaxItems.
func (c *ChannelConfig) EffectiveMinItems() int {
	if c.MaxItems > 0 && (c.MinItems == 0 || c.MinItems > c.MaxItems) {
		return c.MaxItems
	}
	return c.MinItems
}

// CategoryMaximum is the fill target of category cat.
func (c *ChannelConfig) CategoryMaximum(cat Category) int {
	return c.MaxItems * c.Percentages[cat] / 100
}

// Validate reports the first inconsistency in the snapshot.
func (c *ChannelConfig) Validate() error {
	if c.MinItems < 0 || c.MaxItems < 0 || c.ItemsPerCycle < 0 {
		return fmt.Errorf("%s: item counts must not be negative", c.Channel)
	}
	if c.DuplicatesCount < 0 || c.BidsPerInterval < 0 || c.BiddingInterval < 0 {
		return fmt.Errorf("%s: duplicates, bids and interval must not be negative", c.Channel)
	}
	total := 0
	for _, p := range c.Percentages {
		if p < 0 {
			return fmt.Errorf("%s: percentages must not be negative", c.Channel)
		}
		total += p
	}
	if total > 100 {
		return fmt.Errorf("%s: percentages sum to %d, must be <= 100", c.Channel, total)
	}
	for q, t := range c.Qualities {
		if t.MinPrice < 0 || t.MinPrice > t.MaxPrice {
			return fmt.Errorf("%s/%s: price range [%d,%d] invalid", c.Channel, Quality(q), t.MinPrice, t.MaxPrice)
		}
		if t.MinBidPrice < 0 || t.MinBidPrice > t.MaxBidPrice || t.MaxBidPrice > 100 {
			return fmt.Errorf("%s/%s: bid range [%d,%d] invalid", c.Channel, Quality(q), t.MinBidPrice, t.MaxBidPrice)
		}
		if t.MaxStack < 0 || t.BuyerPrice < 0 || math.IsNaN(t.BuyerPrice) || math.IsInf(t.BuyerPrice, 0) {
			return fmt.Errorf("%s/%s: max stack must not be negative and buyer price must be finite and not negative", c.Channel, Quality(q))
		}
	}
	if c.DepositPercent < 0 || c.CutPercent < 0 || c.CutPercent > 100 {
		return fmt.Errorf("%s: deposit/cut percent invalid", c.Channel)
	}
	return nil
}
