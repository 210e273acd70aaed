package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"carebot/internal/metrics"
	"carebot/internal/providers"
	"carebot/internal/storage"
)

const recentMessages = 10

const systemPrompt = `You are Carebot, a compassionate AI wellness companion.
Your job right now is NOT to chat — it is to produce 1 to 3 SHORT proactive suggestion chips that the user might find helpful based on the context below.

Rules:
1. Return ONLY a valid JSON array (no markdown, no prose outside the array).
2. Each element must have exactly these keys:
   - "text"    : short label shown on the chip (max 60 chars), e.g. "Log your energy level"
   - "action"  : one of: "message", "checkin", "resources", "breathing"
   - "payload" : if action=="message", the pre-filled message text; otherwise ""
3. Only suggest what is genuinely relevant. If nothing fits, return [].
4. "breathing" is a 4-7-8 breathing exercise — only suggest it when the user seems stressed, anxious, or overwhelmed in recent messages.
5. "checkin" navigates to the daily check-in page — only suggest it if the user has NOT checked in today.
6. "resources" navigates to the resources library.
7. "message" pre-fills the chat input — use it for actionable follow-up tasks.
8. Never repeat a suggestion that was offered very recently.

Examples of good suggestions:
[
  {"text": "Log your energy level", "action": "checkin", "payload": ""},
  {"text": "Browse coping resources", "action": "resources", "payload": ""},
  {"text": "Try a 4-7-8 breathing exercise", "action": "breathing", "payload": ""},
  {"text": "Plan tomorrow together", "action": "message", "payload": "Can you help me plan tomorrow?"}
]`

type Store interface {
	ConversationByID(ctx context.Context, userID, conversationID int64) (storage.Conversation, error)
	RecentMessages(ctx context.Context, conversationID int64, limit uint64) ([]storage.Message, error)
	TodaysCheckin(ctx context.Context, userID int64, now time.Time) (storage.Checkin, bool, error)
}

type Brain interface {
	Chat(ctx context.Context, userID int64, msgs []providers.Message) (string, error)
}

type ContextCollector interface {
	CollectContext(ctx context.Context, userID int64) string
}

// Service produces proactive suggestion chips. Every failure inside it
// collapses to an empty list so the chat path is never blocked by a
// slow or broken suggestion call.
type Service struct {
	store    Store
	brain    Brain
	plugins  ContextCollector
	redis    *redis.Client
	cooldown time.Duration
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type ServiceConfig struct {
	Store    Store
	Brain    Brain
	Plugins  ContextCollector
	Redis    *redis.Client
	Cooldown time.Duration
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Service{
		store:    cfg.Store,
		brain:    cfg.Brain,
		plugins:  cfg.Plugins,
		redis:    cfg.Redis,
		cooldown: cooldown,
		logger:   cfg.Logger,
		metrics:  m,
		now:      now,
	}
}

// Suggestions returns 0-3 chips for the user. Results are cached in
// redis for the cooldown window so one user cannot hammer the model.
func (s *Service) Suggestions(ctx context.Context, userID, conversationID int64) []Chip {
	if cached, ok := s.cachedChips(ctx, userID); ok {
		s.metrics.SuggestCached.Inc()
		return cached
	}

	chips := s.generate(ctx, userID, conversationID)
	s.cacheChips(ctx, userID, chips)
	s.metrics.SuggestServed.Inc()
	return chips
}

func (s *Service) generate(ctx context.Context, userID, conversationID int64) []Chip {
	if _, err := s.store.ConversationByID(ctx, userID, conversationID); err != nil {
		return nil
	}

	recent, err := s.store.RecentMessages(ctx, conversationID, recentMessages)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("suggestions: load messages")
		return nil
	}

	now := s.now()
	_, checkedIn, err := s.store.TodaysCheckin(ctx, userID, now)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("suggestions: check-in lookup")
		checkedIn = false
	}

	prompt := buildUserPrompt(recent, s.plugins.CollectContext(ctx, userID), now.Hour(), checkedIn)
	raw, err := s.brain.Chat(ctx, userID, []providers.Message{
		{Role: providers.RoleSystem, Content: systemPrompt},
		{Role: providers.RoleUser, Content: prompt},
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("suggestions: model call failed")
		return nil
	}
	return parseChips(raw)
}

func buildUserPrompt(recent []storage.Message, pluginContext string, hour int, checkedIn bool) string {
	hourLabel := "evening"
	switch {
	case hour < 12:
		hourLabel = "morning"
	case hour < 17:
		hourLabel = "afternoon"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current time: %s (hour=%d)\n", hourLabel, hour)
	fmt.Fprintf(&b, "User has checked in today: %t\n", checkedIn)
	if pluginContext != "" {
		fmt.Fprintf(&b, "\nContext from plugins:\n%s\n", pluginContext)
	}
	b.WriteString("\nLast messages in the conversation (newest last):\n")
	for _, m := range recent {
		content := m.Content
		if r := []rune(content); len(r) > 300 {
			content = string(r[:300])
		}
		fmt.Fprintf(&b, "  [%s]: %s\n", strings.ToUpper(m.Role), content)
	}
	b.WriteString("\nNow produce the JSON array of suggestion chips. Return [] if nothing is relevant.")
	return b.String()
}

func (s *Service) cacheKey(userID int64) string {
	return fmt.Sprintf("carebot:suggest:%d", userID)
}

func (s *Service) cachedChips(ctx context.Context, userID int64) ([]Chip, bool) {
	if s.redis == nil {
		return nil, false
	}
	raw, err := s.redis.Get(ctx, s.cacheKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Int64("user_id", userID).Msg("suggestions: cache read")
		}
		return nil, false
	}
	var chips []Chip
	if err := json.Unmarshal([]byte(raw), &chips); err != nil {
		return nil, false
	}
	return chips, true
}

func (s *Service) cacheChips(ctx context.Context, userID int64, chips []Chip) {
	if s.redis == nil {
		return
	}
	// Failures too get cached as an empty list; the cooldown applies
	// either way so a broken upstream is not re-polled every request.
	raw, err := json.Marshal(chips)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.cacheKey(userID), raw, s.cooldown).Err(); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("suggestions: cache write")
	}
}
