package goals

import (
	"context"
	"fmt"
	"strings"

	"carebot/internal/plugins"
	"carebot/internal/storage"
)

const contextGoals = 5

type Store interface {
	ActiveGoals(ctx context.Context, userID int64) ([]storage.Goal, error)
}

// Plugin tells the model which small goals the user is working on and
// how their streaks are going.
type Plugin struct {
	store Store
}

func New(store Store) *Plugin {
	return &Plugin{store: store}
}

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "goal_streaks" }
func (p *Plugin) Title() string { return "Goal Streaks" }
func (p *Plugin) Description() string {
	return "Create small goals, track completion, and maintain gentle streaks with no-pressure resets."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	active, err := p.store.ActiveGoals(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("read active goals: %w", err)
	}
	if len(active) == 0 {
		return "", nil
	}

	if len(active) > contextGoals {
		active = active[:contextGoals]
	}
	lines := make([]string, 0, len(active))
	for _, g := range active {
		switch {
		case g.Streak > 1:
			lines = append(lines, fmt.Sprintf("  - %q (%d-day streak)", g.Title, g.Streak))
		case g.Streak == 1:
			lines = append(lines, fmt.Sprintf("  - %q (done yesterday or today)", g.Title))
		default:
			lines = append(lines, fmt.Sprintf("  - %q (not started yet)", g.Title))
		}
	}
	return "[Goal Streaks] The user is working on these goals:\n" + strings.Join(lines, "\n"), nil
}
