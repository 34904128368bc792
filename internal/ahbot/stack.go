package ahbot

import (
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

// wholeStackThreshold makes a full stack the outcome of 65% of draws.
const wholeStackThreshold = 0.35

// StackCount draws a stack size in [1, max].
//
// With divisible stacks the divisor checks run 5, then 4, then 3, and each
// match overwrites the previous one, so a max divisible by 3 always yields a
// multiple of 3. Maxima with none of those divisors fall back to the
// non-divisible draw.
func StackCount(r Rand, divisible bool, max int) int {
	if max <= 1 {
		return 1
	}
	if divisible {
		ret := 0
		if max%5 == 0 {
			ret = urand(r, 1, 4) * 5
		}
		if max%4 == 0 {
			ret = urand(r, 1, 4) * 4
		}
		if max%3 == 0 {
			ret = urand(r, 1, 3) * 3
		}
		if ret > max {
			ret = max
		}
		if ret > 0 {
			return ret
		}
	}
	if r.Float64() > wholeStackThreshold {
		return max
	}
	return urand(r, 1, max)
}

// ListingDuration draws a listing lifetime for the duration class.
func ListingDuration(r Rand, class domain.DurationClass) time.Duration {
	switch class {
	case domain.DurationShort:
		return time.Duration(urand(r, 1, 5)) * 10 * time.Minute
	case domain.DurationMedium:
		return time.Duration(urand(r, 1, 23)) * time.Hour
	default:
		return time.Duration(urand(r, 1, 3)) * 24 * time.Hour
	}
}

// boundedStack applies the channel's per-quality stack cap: 0 leaves the
// catalog maximum uncapped, 1 forces single items, anything larger caps the
// draw.
func boundedStack(r Rand, cfg *domain.ChannelConfig, tmpl domain.ItemTemplate) int {
	capacity := cfg.Tuning(tmpl.Quality).MaxStack
	switch {
	case tmpl.MaxStack <= 1:
		return 1
	case capacity == 0:
		return StackCount(r, cfg.DivisibleStacks, tmpl.MaxStack)
	case capacity > 1:
		return min(StackCount(r, cfg.DivisibleStacks, tmpl.MaxStack), capacity)
	default:
		return 1
	}
}
