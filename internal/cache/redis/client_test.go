package redis

import "testing"

func TestClientKey(t *testing.T) {
	cases := []struct {
		prefix, key, want string
	}{
		{"", "lock:ahbot:tick", "lock:ahbot:tick"},
		{"realm1", "lock:ahbot:tick", "realm1:lock:ahbot:tick"},
		{"realm1", "template:25", "realm1:template:25"},
	}
	for _, tc := range cases {
		c := &Client{prefix: tc.prefix}
		if got := c.Key(tc.key); got != tc.want {
			t.Fatalf("prefix=%q key=%q got=%q want=%q", tc.prefix, tc.key, got, tc.want)
		}
	}
}

func TestHasPattern(t *testing.T) {
	if !hasPattern("listings:*") || hasPattern("ticks") {
		t.Fatalf("pattern detection wrong")
	}
}

func TestClientOptions(t *testing.T) {
	opts := ClientConfig{Addr: "cache:6379", DB: 2, TLSEnabled: true}.options()
	if opts.Addr != "cache:6379" || opts.DB != 2 {
		t.Fatalf("addr=%q db=%d", opts.Addr, opts.DB)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("tls config missing")
	}
	if opts := (ClientConfig{Addr: "cache:6379"}).options(); opts.TLSConfig != nil {
		t.Fatalf("unexpected tls config")
	}
}
