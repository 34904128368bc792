package ahbot

import "github.com/alanyoungcy/auctionbot/internal/domain"

// sellerBaseline is the per-unit price the seller scales from. A non-zero
// market price wins when the channel sells at market price.
func sellerBaseline(cfg *domain.ChannelConfig, tmpl domain.ItemTemplate, marketPrice int64) int64 {
	if cfg.SellAtMarketPrice && marketPrice > 0 {
		return marketPrice
	}
	if cfg.UseBuyPriceForSeller {
		return tmpl.BuyPrice
	}
	return tmpl.SellPrice
}

// buyerBaseline is the per-unit price the buyer values items at.
func buyerBaseline(cfg *domain.ChannelConfig, tmpl domain.ItemTemplate) int64 {
	if cfg.UseBuyPriceForBuyer {
		return tmpl.BuyPrice
	}
	return tmpl.SellPrice
}

// PriceListing returns the buyout and starting bid for a stack. The unit
// buyout is baseline scaled by a percentage drawn from [MinPrice, MaxPrice];
// the unit bid is the unit buyout scaled by a percentage drawn from
// [MinBidPrice, MaxBidPrice]. Divisions truncate.
func PriceListing(r Rand, baseline int64, tuning domain.QualityTuning, stack int) (buyout, startBid int64) {
	unitBuyout := baseline * int64(urand(r, tuning.MinPrice, tuning.MaxPrice)) / 100
	unitBid := unitBuyout * int64(urand(r, tuning.MinBidPrice, tuning.MaxBidPrice)) / 100
	return unitBuyout * int64(stack), unitBid * int64(stack)
}
