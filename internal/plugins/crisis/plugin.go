package crisis

import (
	"context"

	"carebot/internal/plugins"
)

// Plugin marks the urgent-support chat surface. The urgent session
// runs through the regular chat endpoints and contributes nothing to
// the chat context; it is registered so users can toggle it.
type Plugin struct{}

func New() *Plugin { return &Plugin{} }

var _ plugins.Plugin = (*Plugin)(nil)

func (p *Plugin) Name() string  { return "crisis_support" }
func (p *Plugin) Title() string { return "Urgent Support Chat" }
func (p *Plugin) Description() string {
	return "Separate urgent session chat focused on grounding, de-escalation, and step-by-step coping support."
}

func (p *Plugin) Context(ctx context.Context, userID int64) (string, error) {
	return "", nil
}
