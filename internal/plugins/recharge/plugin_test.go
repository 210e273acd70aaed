package recharge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestLibraryHasAllSections(t *testing.T) {
	p := New(Config{Logger: zerolog.Nop()})
	if len(p.Articles()) == 0 || len(p.Videos()) == 0 || len(p.Audio()) == 0 {
		t.Fatalf("every library section must have entries")
	}
	for _, r := range p.Articles() {
		if r.Title == "" || r.URL == "" {
			t.Fatalf("article missing title or url: %+v", r)
		}
	}
}

func TestQuoteFromFeed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"q":"Keep going.","a":"Someone Wise"}]`))
	}))
	defer upstream.Close()

	p := New(Config{QuoteURL: upstream.URL, Logger: zerolog.Nop()})
	q := p.Quote(context.Background())
	if q.Text != "Keep going." || q.Author != "Someone Wise" || q.Source != "zenquotes" {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestQuoteFallsBackWhenFeedFails(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	p := New(Config{QuoteURL: upstream.URL, Logger: zerolog.Nop()})
	q := p.Quote(context.Background())
	if q.Source != "local" || q.Text == "" {
		t.Fatalf("expected local fallback quote, got %+v", q)
	}
}

func TestQuoteFallsBackOnGarbage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer upstream.Close()

	p := New(Config{QuoteURL: upstream.URL, Logger: zerolog.Nop()})
	if q := p.Quote(context.Background()); q.Source != "local" {
		t.Fatalf("expected local fallback quote, got %+v", q)
	}
}
