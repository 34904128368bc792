package ahbot

import "github.com/alanyoungcy/auctionbot/internal/domain"

const pickAttempts = 10

// PickItem draws a candidate whose listed count is at most ceiling. The
// ceiling is a soft bias: after pickAttempts misses the last draw is
// returned anyway. A ceiling of zero accepts the first draw.
func PickItem(r Rand, candidates []int64, listed map[int64]int, ceiling int) (int64, error) {
	if len(candidates) == 0 {
		return 0, domain.ErrNoCandidates
	}
	var id int64
	for range pickAttempts {
		id = candidates[r.IntN(len(candidates))]
		if ceiling == 0 || listed[id] <= ceiling {
			return id, nil
		}
	}
	return id, nil
}

func registerItem(listed map[int64]int, id int64) {
	listed[id]++
}
