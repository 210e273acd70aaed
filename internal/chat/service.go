package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"carebot/internal/metrics"
	"carebot/internal/providers"
	"carebot/internal/storage"
)

// reuseWindow is how long a conversation whose last turn is an
// unanswered user message stays eligible for reuse. A send that timed
// out upstream leaves exactly that shape behind; retrying within the
// window continues the same conversation instead of forking a new one.
const reuseWindow = 20 * time.Minute

// historyWindow bounds how many persisted messages are replayed to the
// model on each turn.
const historyWindow = 50

const titleMax = 60

var ErrRateLimited = errors.New("rate limited")

// RateLimitedError carries the window bookkeeping so the API layer can
// tell the user when to try again.
type RateLimitedError struct {
	Used    int64
	Limit   int64
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %d/%d sends this hour, resets at %s", e.Used, e.Limit, e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

type Store interface {
	CreateConversation(ctx context.Context, userID int64, title string) (storage.Conversation, error)
	ConversationByID(ctx context.Context, userID, conversationID int64) (storage.Conversation, error)
	LatestConversation(ctx context.Context, userID int64) (storage.Conversation, bool, error)
	AppendMessage(ctx context.Context, conversationID int64, role, content string) error
	RecentMessages(ctx context.Context, conversationID int64, limit uint64) ([]storage.Message, error)
	LastMessage(ctx context.Context, conversationID int64) (storage.Message, bool, error)
	TouchConversation(ctx context.Context, conversationID int64) error
}

// Brain is the single entry point into the model layer.
type Brain interface {
	Chat(ctx context.Context, userID int64, msgs []providers.Message) (string, error)
}

type ContextCollector interface {
	CollectContext(ctx context.Context, userID int64) string
}

type Service struct {
	store   Store
	brain   Brain
	plugins ContextCollector
	limiter *RateLimiter
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type ServiceConfig struct {
	Store   Store
	Brain   Brain
	Plugins ContextCollector
	Limiter *RateLimiter
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Service{
		store:   cfg.Store,
		brain:   cfg.Brain,
		plugins: cfg.Plugins,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
		metrics: m,
		now:     now,
	}
}

type Reply struct {
	ConversationID int64
	Text           string
}

// Send runs one full chat turn: persist the user message, replay
// history with the aggregated plugin context prepended, call the model,
// persist the reply. The synthesized system message is never persisted.
// An attached image travels with the text as a serialized payload; the
// adapter layer unpacks it into whatever shape the provider accepts.
func (s *Service) Send(ctx context.Context, userID, conversationID int64, text, imageData string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, errors.New("empty message")
	}

	if s.limiter != nil {
		allowed, used, resetAt, err := s.limiter.Allow(ctx, userID, s.now())
		if err != nil {
			// Fail open: a redis hiccup should not take chat down.
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("rate limiter unavailable, allowing send")
		} else if !allowed {
			s.metrics.RateLimitedSend.Inc()
			return Reply{}, &RateLimitedError{Used: used, Limit: s.limiter.limit, ResetAt: resetAt}
		}
	}

	conv, err := s.resolveConversation(ctx, userID, conversationID, text)
	if err != nil {
		return Reply{}, err
	}

	stored := text
	if imageData = strings.TrimSpace(imageData); imageData != "" {
		stored = providers.EncodeImagePayload(text, imageData)
	}
	if err := s.store.AppendMessage(ctx, conv.ID, providers.RoleUser, stored); err != nil {
		return Reply{}, fmt.Errorf("persist user message: %w", err)
	}

	history, err := s.store.RecentMessages(ctx, conv.ID, historyWindow)
	if err != nil {
		return Reply{}, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]providers.Message, 0, len(history)+1)
	if sys := s.plugins.CollectContext(ctx, userID); sys != "" {
		msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: sys})
	}
	for _, m := range history {
		msgs = append(msgs, providers.Message{Role: m.Role, Content: m.Content})
	}

	answer, err := s.brain.Chat(ctx, userID, msgs)
	if err != nil {
		return Reply{}, err
	}

	if err := s.store.AppendMessage(ctx, conv.ID, providers.RoleAssistant, answer); err != nil {
		return Reply{}, fmt.Errorf("persist assistant message: %w", err)
	}
	if err := s.store.TouchConversation(ctx, conv.ID); err != nil {
		s.logger.Warn().Err(err).Int64("conversation_id", conv.ID).Msg("touch conversation")
	}

	s.metrics.ChatTurns.Inc()
	return Reply{ConversationID: conv.ID, Text: answer}, nil
}

func (s *Service) resolveConversation(ctx context.Context, userID, conversationID int64, text string) (storage.Conversation, error) {
	if conversationID > 0 {
		conv, err := s.store.ConversationByID(ctx, userID, conversationID)
		if err != nil {
			return storage.Conversation{}, fmt.Errorf("load conversation: %w", err)
		}
		return conv, nil
	}

	latest, found, err := s.store.LatestConversation(ctx, userID)
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("find latest conversation: %w", err)
	}
	if found {
		last, ok, err := s.store.LastMessage(ctx, latest.ID)
		if err != nil {
			return storage.Conversation{}, fmt.Errorf("inspect latest conversation: %w", err)
		}
		if ok && last.Role == providers.RoleUser && s.now().Sub(last.CreatedAt) <= reuseWindow {
			return latest, nil
		}
	}

	conv, err := s.store.CreateConversation(ctx, userID, deriveTitle(text))
	if err != nil {
		return storage.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

func deriveTitle(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	runes := []rune(title)
	if len(runes) > titleMax {
		title = string(runes[:titleMax-1]) + "…"
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}
