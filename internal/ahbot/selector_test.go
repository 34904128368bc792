package ahbot

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

func TestSelectCategoryRejectsBadInput(t *testing.T) {
	r := NewRand(1)
	cases := []struct {
		name    string
		cats    []domain.Category
		missing []int
		want    error
	}{
		{"empty", nil, nil, domain.ErrWeightsMismatch},
		{"length mismatch", []domain.Category{0, 1}, []int{1}, domain.ErrWeightsMismatch},
		{"all zero", []domain.Category{0, 1, 2}, []int{0, 0, 0}, domain.ErrNoWeight},
	}
	for _, tc := range cases {
		if _, err := SelectCategory(r, tc.cats, tc.missing); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err=%v want=%v", tc.name, err, tc.want)
		}
	}
}

func TestSelectCategoryBoundaries(t *testing.T) {
	cats := []domain.Category{3, 5, 9}
	missing := []int{0, 4, 6}
	if got, _ := SelectCategory(minRand{}, cats, missing); got != 5 {
		t.Fatalf("lowest draw got=%v want=5", got)
	}
	if got, _ := SelectCategory(maxRand{}, cats, missing); got != 9 {
		t.Fatalf("highest draw got=%v want=9", got)
	}
}

func TestSelectCategoryConvergesToWeights(t *testing.T) {
	r := NewRand(42)
	missing := make([]int, domain.CategoryCount)
	missing[1], missing[4], missing[8], missing[13] = 5, 10, 25, 60
	total := 100

	const draws = 100000
	counts := make([]int, domain.CategoryCount)
	for range draws {
		c, err := SelectCategory(r, domain.AllCategories, missing)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if missing[c] == 0 {
			t.Fatalf("selected category %v with zero missing count", c)
		}
		counts[c]++
	}

	chi2 := 0.0
	for c, m := range missing {
		if m == 0 {
			continue
		}
		expected := float64(draws) * float64(m) / float64(total)
		d := float64(counts[c]) - expected
		chi2 += d * d / expected
	}
	// df=3, p=0.0001
	if chi2 > 21.11 {
		t.Fatalf("chi2=%.2f exceeds 21.11; counts=%v", chi2, counts)
	}
}
