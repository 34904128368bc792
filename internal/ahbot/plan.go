package ahbot

import (
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// ListingPlan is a fully decided listing that has not been persisted yet.
type ListingPlan struct {
	Category domain.Category
	ItemID   int64
	Stack    int
	Duration time.Duration
	Buyout   int64
	StartBid int64
}

// planner makes every seller decision that does not touch the ledger. For a
// fixed random source, count snapshot and catalog it always produces the
// same plans.
type planner struct {
	r       Rand
	cfg     *domain.ChannelConfig
	bins    *domain.Bins
	missing []int
	listed  map[int64]int
}

// newPlanner derives the missing count of every category from the current
// per-category listing counts. Empty bins never receive weight.
func newPlanner(r Rand, cfg *domain.ChannelConfig, bins *domain.Bins, current [domain.CategoryCount]int, listed map[int64]int) *planner {
	missing := make([]int, domain.CategoryCount)
	for _, c := range domain.AllCategories {
		if len(bins[c]) == 0 {
			continue
		}
		missing[c] = max(0, cfg.CategoryMaximum(c)-current[c])
	}
	if listed == nil {
		listed = make(map[int64]int)
	}
	return &planner{r: r, cfg: cfg, bins: bins, missing: missing, listed: listed}
}

// Missing returns a copy of the remaining missing counts.
func (p *planner) Missing() []int {
	out := make([]int, len(p.missing))
	copy(out, p.missing)
	return out
}

// next selects a category and an item in it, consuming one unit of that
// category's missing count.
func (p *planner) next() (domain.Category, int64, error) {
	cat, err := SelectCategory(p.r, domain.AllCategories, p.missing)
	if err != nil {
		return 0, 0, err
	}
	id, err := PickItem(p.r, p.bins[cat], p.listed, p.cfg.DuplicatesCount)
	if err != nil {
		return cat, 0, err
	}
	p.missing[cat]--
	return cat, id, nil
}

// shape decides stack, lifetime and prices for a chosen template.
func (p *planner) shape(cat domain.Category, tmpl domain.ItemTemplate, marketPrice int64) ListingPlan {
	tuning := p.cfg.Tuning(tmpl.Quality)
	stack := boundedStack(p.r, p.cfg, tmpl)
	buyout, bid := PriceListing(p.r, sellerBaseline(p.cfg, tmpl, marketPrice), tuning, stack)
	return ListingPlan{
		Category: cat,
		ItemID:   tmpl.ID,
		Stack:    stack,
		Duration: ListingDuration(p.r, p.cfg.DurationClass),
		Buyout:   buyout,
		StartBid: bid,
	}
}

// register records a persisted listing for duplicate tracking.
func (p *planner) register(id int64) {
	registerItem(p.listed, id)
}
