package mood

import (
	"context"
	"strings"
	"testing"
	"time"

	"carebot/internal/storage"
)

type fakeStore struct {
	history []storage.Checkin
	err     error
}

func (f fakeStore) CheckinHistory(ctx context.Context, userID int64, days int, now time.Time) ([]storage.Checkin, error) {
	return f.history, f.err
}

func TestContextFormatsHistory(t *testing.T) {
	day := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	p := New(fakeStore{history: []storage.Checkin{
		{Mood: "okay", RecordedAt: day},
		{Mood: "good", RecordedAt: day.AddDate(0, 0, 1)},
	}})

	got, err := p.Context(context.Background(), 1)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if !strings.HasPrefix(got, "[Mood History") {
		t.Fatalf("unexpected header: %q", got)
	}
	if !strings.Contains(got, "2026-08-30: okay") || !strings.Contains(got, "2026-08-31: good") {
		t.Fatalf("history lines missing: %q", got)
	}
}

func TestContextLimitsLines(t *testing.T) {
	day := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	var history []storage.Checkin
	for i := 0; i < 7; i++ {
		history = append(history, storage.Checkin{Mood: "okay", RecordedAt: day.AddDate(0, 0, i)})
	}
	p := New(fakeStore{history: history})

	got, err := p.Context(context.Background(), 1)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if lines := strings.Count(got, "\n"); lines != contextLines {
		t.Fatalf("expected %d history lines, got %d in %q", contextLines, lines, got)
	}
	// The most recent entries win.
	if !strings.Contains(got, "2026-08-31") {
		t.Fatalf("latest day missing: %q", got)
	}
	if strings.Contains(got, "2026-08-25") {
		t.Fatalf("oldest day should be trimmed: %q", got)
	}
}

func TestContextEmptyHistory(t *testing.T) {
	p := New(fakeStore{})
	got, err := p.Context(context.Background(), 1)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no context for empty history, got %q", got)
	}
}
