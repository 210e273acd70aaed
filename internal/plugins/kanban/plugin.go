package kanban

import (
	"context"

	"carebot/internal/plugins"
)

// Plugin exposes the now/next/done board. The board is managed through
// its own endpoints and contributes nothing to the chat context; it is
// registered so users can toggle it like any other plugin.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "kanban_board" }
func (p *Plugin) Title() string { return "Kanban Board" }
func (p *Plugin) Description() string {
	return "A tiny personal board with now, next, and done lanes for organizing the day."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	return "", nil
}
