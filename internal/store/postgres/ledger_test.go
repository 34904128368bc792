package postgres

import (
	"testing"
	"time"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

func TestListingWhere(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		f     domain.ListingFilter
		where string
		args  int
	}{
		{"channel only", domain.ListingFilter{}, " WHERE channel = $1", 1},
		{"owner", domain.ListingFilter{Owner: 5}, " WHERE channel = $1 AND owner = $2", 2},
		{
			"buyer pool",
			domain.ListingFilter{ExcludeOwner: 5, ExcludeBidder: 5, ActiveAt: at},
			" WHERE channel = $1 AND owner <> $2 AND bidder <> $3 AND expires_at > $4",
			4,
		},
	}
	for _, tc := range cases {
		where, args := listingWhere(domain.ChannelHorde, tc.f)
		if where != tc.where || len(args) != tc.args {
			t.Fatalf("%s: where=%q args=%d want=%q/%d", tc.name, where, len(args), tc.where, tc.args)
		}
		if args[0] != int(domain.ChannelHorde) {
			t.Fatalf("%s: channel arg=%v", tc.name, args[0])
		}
	}
}

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{Host: "db", Database: "ahbot", User: "bot", Password: "pw"})
	want := "postgres://bot:pw@db:5432/ahbot?sslmode=disable"
	if got != want {
		t.Fatalf("dsn=%q want=%q", got, want)
	}
	if got := DSN(ClientConfig{DSN: "postgres://x"}); got != "postgres://x" {
		t.Fatalf("explicit dsn=%q", got)
	}
}
