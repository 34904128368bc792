package domain

import (
	"fmt"
	"strings"
)

// Quality is the rarity tier of a catalog item.
type Quality int

const (
	QualityGrey Quality = iota
	QualityWhite
	QualityGreen
	QualityBlue
	QualityPurple
	QualityOrange
	QualityYellow
)

// MaxQuality is the highest tier the bot lists or buys.
const MaxQuality = QualityYellow

// QualityCount is the number of supported tiers.
const QualityCount = int(MaxQuality) + 1

var qualityNames = [QualityCount]string{"grey", "white", "green", "blue", "purple", "orange", "yellow"}

func (q Quality) String() string {
	if q < 0 || int(q) >= QualityCount {
		return fmt.Sprintf("quality(%d)", int(q))
	}
	return qualityNames[q]
}

// Supported reports whether q is within [grey, yellow].
func (q Quality) Supported() bool {
	return q >= QualityGrey && q <= MaxQuality
}

// ParseQuality accepts a colour name ("blue") or a tier number ("3").
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range qualityNames {
		if n == s {
			return Quality(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && Quality(n).Supported() {
		return Quality(n), nil
	}
	return 0, fmt.Errorf("unknown quality %q", s)
}

// ItemClassTradeGoods is the catalog class of crafting materials. All other
// classes are grouped as regular items.
const ItemClassTradeGoods = 7

// ItemTemplate is a read-only catalog entry.
type ItemTemplate struct {
	ID        int64   `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Quality   Quality `json:"quality" yaml:"quality"`
	Class     int     `json:"class" yaml:"class"`
	BuyPrice  int64   `json:"buy_price" yaml:"buy_price"`
	SellPrice int64   `json:"sell_price" yaml:"sell_price"`
	MaxStack  int     `json:"max_stack" yaml:"max_stack"`
}

// Item is a concrete stack instantiated from a template.
type Item struct {
	GUID             int64
	ItemID           int64
	Owner            int64
	Count            int
	RandomPropertyID int64
}

// SetCount changes the stack size.
func (i *Item) SetCount(n int) {
	i.Count = n
}
