package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordSender struct {
	name   string
	titles []string
	err    error
}

func (s *recordSender) Send(_ context.Context, title, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordSender) Name() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify_EmptyFilterAllowsAll(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	for _, event := range []string{EventExportCompleted, EventExportFailed, EventNewMarkets} {
		if err := n.Notify(context.Background(), event, "t", "m"); err != nil {
			t.Fatal(err)
		}
	}
	if len(s.titles) != 3 {
		t.Errorf("deliveries = %d, want 3", len(s.titles))
	}
}

func TestNotify_FilterBlocksUnlistedEvents(t *testing.T) {
	s := &recordSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventExportCompleted}, testLogger())
	ctx := context.Background()

	if err := n.Notify(ctx, EventNewMarkets, "new", "m"); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(ctx, EventExportCompleted, "done", "m"); err != nil {
		t.Fatal(err)
	}

	if len(s.titles) != 1 || s.titles[0] != "done" {
		t.Errorf("deliveries = %v, want only the allowed event", s.titles)
	}
}

func TestNotify_CollectsSenderFailures(t *testing.T) {
	ok := &recordSender{name: "ok"}
	bad := &recordSender{name: "bad", err: errors.New("timeout")}
	n := NewNotifier([]Sender{bad, ok}, nil, testLogger())

	err := n.Notify(context.Background(), EventExportCompleted, "t", "m")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Errorf("err = %v, want failing sender named", err)
	}
	if len(ok.titles) != 1 {
		t.Error("healthy sender must still be attempted")
	}
}

func TestDiscordSender_PostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	if err := d.Send(context.Background(), "Export completed", "3 questions"); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(got["content"], "**Export completed**") {
		t.Errorf("content = %q, want bold title", got["content"])
	}
	if !strings.Contains(got["content"], "3 questions") {
		t.Errorf("content = %q, want message body", got["content"])
	}
}

func TestDiscordSender_SurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	d := NewDiscordSender(srv.URL)
	err := d.Send(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v, want status and body surfaced", err)
	}
}
