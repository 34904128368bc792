package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var quietLogs = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordSender struct {
	titles []string
	err    error
}

func (r *recordSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordSender) Name() string { return "record" }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordSender{}
	n := NewNotifier([]Sender{s}, []string{"tick_errors", " "}, "Realm", quietLogs)

	if err := n.Notify(context.Background(), "config_changed", "ignored", ""); err != nil {
		t.Fatalf("filtered notify: %v", err)
	}
	if err := n.Notify(context.Background(), "tick_errors", "Auction bot errors", "2 errors"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(s.titles) != 1 || s.titles[0] != "[Realm] Auction bot errors" {
		t.Fatalf("titles=%v", s.titles)
	}
}

func TestNotifierJoinsSenderErrors(t *testing.T) {
	ok := &recordSender{}
	bad := &recordSender{err: io.ErrUnexpectedEOF}
	n := NewNotifier([]Sender{bad, ok}, nil, "", quietLogs)
	err := n.Notify(context.Background(), "any", "t", "m")
	if err == nil || !strings.Contains(err.Error(), "record") {
		t.Fatalf("err=%v want sender failure", err)
	}
	if len(ok.titles) != 1 {
		t.Fatalf("later sender skipped after a failure")
	}
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42")
	s.baseURL = srv.URL
	if err := s.Send(context.Background(), "Title", "body"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if path != "/bottok/sendMessage" || got["chat_id"] != "42" || got["text"] != "*Title*\nbody" {
		t.Fatalf("path=%s payload=%v", path, got)
	}
}

func TestDiscordSenderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err=%v want status 429", err)
	}
}
