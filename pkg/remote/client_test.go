package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glossarkit/glossar/pkg/exchange"
)

func testSnapshot() *exchange.Snapshot {
	return &exchange.Snapshot{
		GeneratedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		Terms: []exchange.SnapshotTerm{
			{Term: "Algorithmus", Canonical: "algorithmus", Definition: "a finite procedure", UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		Sources: []exchange.SnapshotSource{
			{Label: "knuth-vol1", Description: "TAOCP"},
		},
		Links: []exchange.SnapshotLink{
			{TermCanonical: "algorithmus", SourceLabel: "knuth-vol1"},
		},
	}
}

func TestPullRoundTrip(t *testing.T) {
	var body bytes.Buffer
	gz := gzip.NewWriter(&body)
	if err := exchange.EncodeSnapshot(gz, testSnapshot()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	gz.Close()

	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write(body.Bytes())
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret-token")
	snap, err := c.Pull(context.Background())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if gotPath != "/glossary.json.gz" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if len(snap.Terms) != 1 || snap.Terms[0].Canonical != "algorithmus" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestPullNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Pull(context.Background()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPullServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if _, err := c.Pull(context.Background()); err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestPushUploadsGzippedSnapshot(t *testing.T) {
	var received *exchange.Snapshot
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			t.Errorf("body not gzip: %v", err)
			return
		}
		received, err = exchange.DecodeSnapshot(gz)
		if err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.Push(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("push: %v", err)
	}
	if received == nil || len(received.Terms) != 1 {
		t.Fatalf("server did not receive the snapshot: %+v", received)
	}
}
