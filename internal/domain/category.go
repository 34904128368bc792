package domain

// Category is a quality tier within a type group. Values 0..6 are trade
// goods grey..yellow, 7..13 are regular items grey..yellow.
type Category int

// CategoryCount is the number of item bins.
const CategoryCount = 2 * QualityCount

// AllCategories lists every category in index order.
var AllCategories = func() []Category {
	out := make([]Category, CategoryCount)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}()

// CategoryFor returns the bin that holds items of the given class and quality.
func CategoryFor(class int, q Quality) Category {
	if class == ItemClassTradeGoods {
		return Category(q)
	}
	return Category(QualityCount + int(q))
}

// CategoryOf classifies a catalog template.
func CategoryOf(t ItemTemplate) Category {
	return CategoryFor(t.Class, t.Quality)
}

// Quality returns the tier of the category.
func (c Category) Quality() Quality {
	return Quality(int(c) % QualityCount)
}

// TradeGoods reports whether the category belongs to the trade goods group.
func (c Category) TradeGoods() bool {
	return int(c) < QualityCount
}

func (c Category) String() string {
	if c.TradeGoods() {
		return c.Quality().String() + "_tradegoods"
	}
	return c.Quality().String() + "_items"
}

// Bins holds the eligible catalog item IDs per category. A Bins value is
// built once at startup and never mutated afterwards.
type Bins [CategoryCount][]int64

// Size returns the number of items across all bins.
func (b *Bins) Size() int {
	n := 0
	for _, ids := range b {
		n += len(ids)
	}
	return n
}

// Index maps every binned item ID to its category.
func (b *Bins) Index() map[int64]Category {
	out := make(map[int64]Category, b.Size())
	for c, ids := range b {
		for _, id := range ids {
			out[id] = Category(c)
		}
	}
	return out
}
