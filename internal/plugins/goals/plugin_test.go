package goals

import (
	"context"
	"strings"
	"testing"

	"carebot/internal/storage"
)

type fakeStore struct {
	goals []storage.Goal
	err   error
}

func (f fakeStore) ActiveGoals(ctx context.Context, userID int64) ([]storage.Goal, error) {
	return f.goals, f.err
}

func TestContextListsGoalsWithStreaks(t *testing.T) {
	p := New(fakeStore{goals: []storage.Goal{
		{Title: "drink water", Streak: 4},
		{Title: "evening walk", Streak: 1},
		{Title: "journal", Streak: 0},
	}})

	got, err := p.Context(context.Background(), 1)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if !strings.Contains(got, `"drink water" (4-day streak)`) {
		t.Fatalf("streak line missing: %q", got)
	}
	if !strings.Contains(got, `"journal" (not started yet)`) {
		t.Fatalf("unstarted line missing: %q", got)
	}
}

func TestContextEmptyWithoutGoals(t *testing.T) {
	p := New(fakeStore{})
	got, err := p.Context(context.Background(), 1)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no context without goals, got %q", got)
	}
}

func TestContextCapsGoalCount(t *testing.T) {
	var many []storage.Goal
	for i := 0; i < 8; i++ {
		many = append(many, storage.Goal{Title: "goal", Streak: 2})
	}
	p := New(fakeStore{goals: many})

	got, err := p.Context(context.Background(), 1)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if lines := strings.Count(got, "\n"); lines != contextGoals {
		t.Fatalf("expected %d goal lines, got %d", contextGoals, lines)
	}
}
