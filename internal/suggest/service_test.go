package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"carebot/internal/providers"
	"carebot/internal/storage"
)

type fakeStore struct {
	conv      storage.Conversation
	convErr   error
	messages  []storage.Message
	checkedIn bool
}

func (f *fakeStore) ConversationByID(ctx context.Context, userID, conversationID int64) (storage.Conversation, error) {
	if f.convErr != nil {
		return storage.Conversation{}, f.convErr
	}
	return f.conv, nil
}

func (f *fakeStore) RecentMessages(ctx context.Context, conversationID int64, limit uint64) ([]storage.Message, error) {
	return f.messages, nil
}

func (f *fakeStore) TodaysCheckin(ctx context.Context, userID int64, now time.Time) (storage.Checkin, bool, error) {
	return storage.Checkin{}, f.checkedIn, nil
}

type fakeBrain struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (b *fakeBrain) Chat(ctx context.Context, userID int64, msgs []providers.Message) (string, error) {
	b.calls++
	if len(msgs) > 0 {
		b.prompt = msgs[len(msgs)-1].Content
	}
	return b.reply, b.err
}

type noContext struct{}

func (noContext) CollectContext(ctx context.Context, userID int64) string { return "" }

func newTestService(t *testing.T, store Store, brain Brain) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewService(ServiceConfig{
		Store:    store,
		Brain:    brain,
		Plugins:  noContext{},
		Redis:    rdb,
		Cooldown: 10 * time.Minute,
		Logger:   zerolog.Nop(),
	}), mr
}

func TestSuggestionsHappyPath(t *testing.T) {
	store := &fakeStore{
		conv: storage.Conversation{ID: 1, UserID: 1},
		messages: []storage.Message{
			{Role: providers.RoleUser, Content: "I feel a bit overwhelmed"},
		},
	}
	brain := &fakeBrain{reply: `[{"text":"Try a 4-7-8 breathing exercise","action":"breathing","payload":""}]`}
	svc, _ := newTestService(t, store, brain)

	chips := svc.Suggestions(context.Background(), 1, 1)
	if len(chips) != 1 || chips[0].Action != ActionBreathing {
		t.Fatalf("unexpected chips %+v", chips)
	}
	if !strings.Contains(brain.prompt, "I feel a bit overwhelmed") {
		t.Fatalf("recent messages missing from prompt:\n%s", brain.prompt)
	}
	if !strings.Contains(brain.prompt, "User has checked in today: false") {
		t.Fatalf("check-in flag missing from prompt:\n%s", brain.prompt)
	}
}

func TestSuggestionsCooldownServesCache(t *testing.T) {
	store := &fakeStore{conv: storage.Conversation{ID: 1, UserID: 1}}
	brain := &fakeBrain{reply: `[{"text":"Browse resources","action":"resources","payload":""}]`}
	svc, _ := newTestService(t, store, brain)

	first := svc.Suggestions(context.Background(), 1, 1)
	second := svc.Suggestions(context.Background(), 1, 1)
	if brain.calls != 1 {
		t.Fatalf("expected one model call inside the cooldown window, got %d", brain.calls)
	}
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("cached chips differ: %+v vs %+v", first, second)
	}
}

func TestSuggestionsCooldownExpires(t *testing.T) {
	store := &fakeStore{conv: storage.Conversation{ID: 1, UserID: 1}}
	brain := &fakeBrain{reply: `[]`}
	svc, mr := newTestService(t, store, brain)

	svc.Suggestions(context.Background(), 1, 1)
	mr.FastForward(11 * time.Minute)
	svc.Suggestions(context.Background(), 1, 1)
	if brain.calls != 2 {
		t.Fatalf("expected a fresh model call after the cooldown, got %d calls", brain.calls)
	}
}

func TestSuggestionsModelFailureReturnsEmpty(t *testing.T) {
	store := &fakeStore{conv: storage.Conversation{ID: 1, UserID: 1}}
	brain := &fakeBrain{err: providers.ErrUpstreamTimeout}
	svc, _ := newTestService(t, store, brain)

	if chips := svc.Suggestions(context.Background(), 1, 1); len(chips) != 0 {
		t.Fatalf("expected empty list on model failure, got %+v", chips)
	}
}

func TestSuggestionsUnknownConversationReturnsEmpty(t *testing.T) {
	store := &fakeStore{convErr: errors.New("not found")}
	brain := &fakeBrain{}
	svc, _ := newTestService(t, store, brain)

	if chips := svc.Suggestions(context.Background(), 1, 99); len(chips) != 0 {
		t.Fatalf("expected empty list for unknown conversation, got %+v", chips)
	}
	if brain.calls != 0 {
		t.Fatalf("model must not be called for an unknown conversation")
	}
}
