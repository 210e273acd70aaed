package mood

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carebot/internal/plugins"
	"carebot/internal/storage"
)

const (
	historyDays  = 7
	contextLines = 5
)

type Store interface {
	CheckinHistory(ctx context.Context, userID int64, days int, now time.Time) ([]storage.Checkin, error)
}

// Plugin gives the model a brief view of the user's recent moods so it
// can notice patterns across days, not just today.
type Plugin struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Plugin {
	return &Plugin{store: store, now: time.Now}
}

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "mood_tracker" }
func (p *Plugin) Title() string { return "Mood Tracker" }
func (p *Plugin) Description() string {
	return "Keeps a 30-day history of your daily moods. Lets the AI notice patterns and offer better support."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	history, err := p.store.CheckinHistory(ctx, userID, historyDays, p.now())
	if err != nil {
		return "", fmt.Errorf("read mood history: %w", err)
	}
	if len(history) == 0 {
		return "", nil
	}

	if len(history) > contextLines {
		history = history[len(history)-contextLines:]
	}
	lines := make([]string, 0, len(history))
	for _, entry := range history {
		lines = append(lines, fmt.Sprintf("  - %s: %s", entry.RecordedAt.UTC().Format("2006-01-02"), entry.Mood))
	}
	return "[Mood History - last 7 days]\n" + strings.Join(lines, "\n"), nil
}
