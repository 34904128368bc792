package ahbot

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

func TestPickItemEmpty(t *testing.T) {
	if _, err := PickItem(NewRand(1), nil, nil, 2); !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("err=%v want=%v", err, domain.ErrNoCandidates)
	}
}

func TestPickItemCeilingDisabled(t *testing.T) {
	listed := map[int64]int{7: 100}
	got, err := PickItem(minRand{}, []int64{7, 8}, listed, 0)
	if err != nil || got != 7 {
		t.Fatalf("got=%d err=%v want=7", got, err)
	}
}

func TestPickItemFallsBackAfterRetries(t *testing.T) {
	listed := map[int64]int{1: 5, 2: 5}
	got, err := PickItem(NewRand(3), []int64{1, 2}, listed, 1)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got != 1 && got != 2 {
		t.Fatalf("got=%d want a candidate", got)
	}
}

func TestPickItemHonoursCeilingMostly(t *testing.T) {
	r := NewRand(7)
	candidates := []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	listed := map[int64]int{1: 0, 2: 1, 3: 2, 4: 0, 5: 1, 6: 2, 7: 9, 8: 9, 9: 9, 10: 9}
	const ceiling = 2

	const trials = 10000
	within := 0
	for range trials {
		id, err := PickItem(r, candidates, listed, ceiling)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		if listed[id] <= ceiling {
			within++
		}
	}
	if within < trials*999/1000 {
		t.Fatalf("within=%d want>=%d", within, trials*999/1000)
	}
}

func TestRegisterItem(t *testing.T) {
	listed := map[int64]int{}
	registerItem(listed, 4)
	registerItem(listed, 4)
	if listed[4] != 2 {
		t.Fatalf("count=%d want=2", listed[4])
	}
}
