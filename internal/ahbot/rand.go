// Package ahbot is the auction house bot engine: it keeps each channel
// stocked with listings and bids on listings posted by real players.
package ahbot

import (
	"math/rand/v2"
	"time"
)

// Rand is the random source used by every decision in the engine.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// NewRand returns a PCG source. A zero seed draws one from the clock.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// urand is a uniform integer in [lo, hi].
func urand(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo+1)
}
