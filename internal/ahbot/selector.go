package ahbot

import "github.com/alanyoungcy/auctionbot/internal/domain"

// SelectCategory draws one category with probability proportional to its
// missing count. missing[i] is the weight of categories[i].
func SelectCategory(r Rand, categories []domain.Category, missing []int) (domain.Category, error) {
	if len(categories) == 0 || len(categories) != len(missing) {
		return 0, domain.ErrWeightsMismatch
	}
	cum := make([]int, len(missing))
	total := 0
	for i, m := range missing {
		if m > 0 {
			total += m
		}
		cum[i] = total
	}
	if total == 0 {
		return 0, domain.ErrNoWeight
	}
	u := r.IntN(total)
	for i, c := range cum {
		if c > u {
			return categories[i], nil
		}
	}
	return categories[len(categories)-1], nil
}
