package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// Seed is the content of a catalog seed file.
type Seed struct {
	Items            []domain.ItemTemplate `yaml:"items"`
	RandomProperties map[int64][]int64     `yaml:"random_properties,omitempty"`
	MarketPrices     map[int64]int64       `yaml:"market_prices,omitempty"`
}

// LoadSeed reads a YAML catalog seed file.
func LoadSeed(path string) (Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("memory: read seed: %w", err)
	}
	return ParseSeed(b)
}

// ParseSeed decodes and checks a catalog seed document.
func ParseSeed(b []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Seed{}, fmt.Errorf("memory: decode seed: %w", err)
	}
	seen := make(map[int64]bool, len(s.Items))
	for i, t := range s.Items {
		if t.ID <= 0 {
			return Seed{}, fmt.Errorf("memory: seed item #%d: id must be positive", i)
		}
		if seen[t.ID] {
			return Seed{}, fmt.Errorf("memory: seed item %d: %w", t.ID, domain.ErrAlreadyExists)
		}
		seen[t.ID] = true
		if t.MaxStack < 1 {
			s.Items[i].MaxStack = 1
		}
	}
	return s, nil
}

// Catalog builds a Catalog from the seed.
func (s Seed) Catalog() *Catalog {
	c := NewCatalog(s.Items...)
	for id, props := range s.RandomProperties {
		c.SetRandomProperties(id, props...)
	}
	return c
}

// Prices builds a MarketPriceStore from the seed.
func (s Seed) Prices() *MarketPriceStore {
	return NewMarketPriceStore(s.MarketPrices)
}
