package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/auctionbot/internal/domain"
)

type chanBus struct {
	topics map[string]chan []byte
}

func (b *chanBus) Publish(context.Context, string, []byte) error { return nil }

func (b *chanBus) Subscribe(_ context.Context, topic string) (<-chan []byte, error) {
	return b.topics[topic], nil
}

func (b *chanBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *chanBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("frame type=%d want text", kind)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func TestHubForwardsTopics(t *testing.T) {
	bus := &chanBus{topics: map[string]chan []byte{
		"bids":  make(chan []byte, 1),
		"ticks": make(chan []byte, 1),
	}}
	hub := NewHub(bus, []string{"bids", "ticks"}, func() any {
		return map[string]string{"mode": "run"}
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if env := readEnvelope(t, conn); env.Topic != "status" || !strings.Contains(string(env.Payload), `"run"`) {
		t.Fatalf("first frame=%+v want status", env)
	}

	bus.topics["bids"] <- []byte(`{"event":"bid_placed"}`)
	env := readEnvelope(t, conn)
	if env.Topic != "bids" || string(env.Payload) != `{"event":"bid_placed"}` {
		t.Fatalf("frame=%s %s", env.Topic, env.Payload)
	}

	// Non-JSON payloads are wrapped as strings.
	bus.topics["ticks"] <- []byte("plain")
	if env := readEnvelope(t, conn); string(env.Payload) != `"plain"` {
		t.Fatalf("payload=%s want quoted string", env.Payload)
	}
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{"bids": true}}
	c.apply(subscribeMsg{Action: "subscribe", Topics: []string{"stream:*"}})
	c.apply(subscribeMsg{Action: "unsubscribe", Topics: []string{"bids"}})

	cases := map[string]bool{
		"bids":         false,
		"stream:ticks": true,
		"listings":     false,
	}
	for topic, want := range cases {
		if got := c.isSubscribed(topic); got != want {
			t.Fatalf("isSubscribed(%q)=%v want=%v", topic, got, want)
		}
	}
}
