package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alanyoungcy/auctionbot/internal/ahbot"
	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Bus topics for ledger activity.
const (
	TopicListings = "listings"
	TopicBids     = "bids"
	TopicTicks    = "ticks"

	// StreamTicks keeps a durable history of tick reports.
	StreamTicks = "stream:ticks"
)

var _ ahbot.Observer = (*BusObserver)(nil)

// BusObserver publishes engine activity on the event bus.
type BusObserver struct {
	bus    domain.EventBus
	logger *slog.Logger
}

// NewBusObserver creates a BusObserver.
func NewBusObserver(bus domain.EventBus, logger *slog.Logger) *BusObserver {
	return &BusObserver{bus: bus, logger: logger}
}

func (o *BusObserver) ListingCreated(ctx context.Context, l domain.Listing) {
	o.publish(ctx, TopicListings, "listing_created", l)
}

func (o *BusObserver) BidPlaced(ctx context.Context, l domain.Listing) {
	o.publish(ctx, TopicBids, "bid_placed", l)
}

func (o *BusObserver) BoughtOut(ctx context.Context, l domain.Listing) {
	o.publish(ctx, TopicBids, "bought_out", l)
}

func (o *BusObserver) publish(ctx context.Context, topic, event string, l domain.Listing) {
	evt, _ := json.Marshal(map[string]any{
		"event":      event,
		"channel":    l.Channel.String(),
		"listing_id": l.ID,
		"item_id":    l.ItemID,
		"count":      l.Count,
		"bid":        l.Bid,
		"start_bid":  l.StartBid,
		"buyout":     l.Buyout,
	})
	if err := o.bus.Publish(ctx, topic, evt); err != nil {
		o.logger.WarnContext(ctx, "publish event failed",
			slog.String("event", event),
			slog.Int64("listing_id", l.ID),
			slog.String("error", err.Error()),
		)
	}
}
