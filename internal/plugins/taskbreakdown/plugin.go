package taskbreakdown

import (
	"context"

	"carebot/internal/plugins"
)

// Plugin marks the task-breakdown coaching mode. The coaching itself
// happens in chat; the plugin only exists as a per-user toggle.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "task_breakdown" }
func (p *Plugin) Title() string { return "Task Breakdown Coach" }
func (p *Plugin) Description() string {
	return "Turns overwhelming tasks into clear micro-steps with suggested timer blocks."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	return "", nil
}
