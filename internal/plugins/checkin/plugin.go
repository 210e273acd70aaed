package checkin

import (
	"context"
	"fmt"
	"time"

	"carebot/internal/plugins"
	"carebot/internal/storage"
)

// Store is the slice of persistence the check-in plugin reads from.
type Store interface {
	TodaysCheckin(ctx context.Context, userID int64, now time.Time) (storage.Checkin, bool, error)
}

// Plugin surfaces today's check-in so the model knows how the user
// said they feel. If they have not checked in yet there is nothing to
// add; the frontend will ask them.
type Plugin struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Plugin {
	return &Plugin{store: store, now: time.Now}
}

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "daily_checkin" }
func (p *Plugin) Title() string { return "Daily Check-in" }
func (p *Plugin) Description() string {
	return "Asks how you're doing once a day and records your response. Helps the AI understand your current state."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	entry, found, err := p.store.TodaysCheckin(ctx, userID, p.now())
	if err != nil {
		return "", fmt.Errorf("read todays checkin: %w", err)
	}
	if !found {
		return "", nil
	}

	label := storage.MoodLabels[entry.Mood]
	if label == "" {
		label = entry.Mood
	}
	text := fmt.Sprintf("[Daily Check-in] The user checked in today and said they feel: %s.", label)
	if entry.Note != "" {
		text += fmt.Sprintf(" They added: %q", entry.Note)
	}
	return text, nil
}
