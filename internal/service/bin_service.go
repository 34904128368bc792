package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// BinOptions controls which catalog templates become listable.
type BinOptions struct {
	DisabledItems    []int64
	IncludeZeroPrice bool
}

// BinService sorts the catalog into the fourteen category bins.
type BinService struct {
	catalog domain.Catalog
	opts    BinOptions
	logger  *slog.Logger
}

// NewBinService creates a BinService.
func NewBinService(catalog domain.Catalog, opts BinOptions, logger *slog.Logger) *BinService {
	return &BinService{
		catalog: catalog,
		opts:    opts,
		logger:  logger.With(slog.String("component", "bins")),
	}
}

// Load builds the bins. Templates above the supported quality, disabled
// items, and unpriced templates (unless IncludeZeroPrice) are left out.
func (s *BinService) Load(ctx context.Context) (*domain.Bins, error) {
	tmpls, err := s.catalog.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("bin_service: list templates: %w", err)
	}
	disabled := make(map[int64]bool, len(s.opts.DisabledItems))
	for _, id := range s.opts.DisabledItems {
		disabled[id] = true
	}

	var bins domain.Bins
	skipped := 0
	for _, t := range tmpls {
		if !t.Quality.Supported() || disabled[t.ID] {
			skipped++
			continue
		}
		if !s.opts.IncludeZeroPrice && t.BuyPrice == 0 && t.SellPrice == 0 {
			skipped++
			continue
		}
		c := domain.CategoryOf(t)
		bins[c] = append(bins[c], t.ID)
	}

	attrs := []any{slog.Int("items", bins.Size()), slog.Int("skipped", skipped)}
	for _, c := range domain.AllCategories {
		attrs = append(attrs, slog.Int(c.String(), len(bins[c])))
	}
	s.logger.InfoContext(ctx, "bins loaded", attrs...)
	return &bins, nil
}
