package plugins

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"carebot/internal/metrics"
)

// Preamble anchors the synthesized system message so the model treats
// the injected plugin context as background knowledge, not user text.
const Preamble = "You are Carebot, a compassionate AI wellness companion. " +
	"Always be kind, patient, and empathetic. " +
	"The following is background about the user, gathered by the app; it was not written by them."

// EnablementSource reads the user's plugin toggle map. Plugins absent
// from the map default to enabled.
type EnablementSource interface {
	PluginEnablement(ctx context.Context, userID int64) (map[string]bool, error)
}

// Manager holds the registered plugins in a fixed order and aggregates
// their context into one system-level preamble. It is a plain value
// constructed once at startup and passed down; there is no process-wide
// registry.
type Manager struct {
	plugins []Plugin
	source  EnablementSource
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type ManagerConfig struct {
	Source  EnablementSource
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func NewManager(cfg ManagerConfig) *Manager {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	return &Manager{
		source:  cfg.Source,
		logger:  cfg.Logger,
		metrics: m,
	}
}

// Register appends a plugin. Registration order is the aggregation
// order, so it must be fixed at startup.
func (m *Manager) Register(p Plugin) {
	m.plugins = append(m.plugins, p)
}

func (m *Manager) Plugins() []Plugin {
	return m.plugins
}

func (m *Manager) Get(name string) (Plugin, bool) {
	for _, p := range m.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// CollectContext gathers context from the user's enabled plugins, in
// registration order, and folds it under the companion preamble.
// Returns the empty string when no plugin has anything to add.
//
// Context injection is best effort: a failing plugin is logged,
// counted and skipped, never aborting the chat turn. Disabled
// plugins are skipped before any data read.
func (m *Manager) CollectContext(ctx context.Context, userID int64) string {
	enabled, err := m.source.PluginEnablement(ctx, userID)
	if err != nil {
		m.logger.Warn().Err(err).Int64("user_id", userID).Msg("failed to load plugin enablement")
		return ""
	}

	parts := make([]string, 0, len(m.plugins))
	for _, p := range m.plugins {
		if on, ok := enabled[p.Name()]; ok && !on {
			continue
		}
		text, err := p.Context(ctx, userID)
		if err != nil {
			m.metrics.PluginFailures.WithLabelValues(p.Name()).Inc()
			m.logger.Warn().Err(err).Str("plugin", p.Name()).Int64("user_id", userID).Msg("plugin context failed")
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return ""
	}
	return Preamble + "\n\n" + strings.Join(parts, "\n\n")
}

// Enabled reports one plugin's toggle state, defaulting to enabled
// when the user has no row for it.
func (m *Manager) Enabled(ctx context.Context, userID int64, name string) (bool, error) {
	enabled, err := m.source.PluginEnablement(ctx, userID)
	if err != nil {
		return false, err
	}
	if on, ok := enabled[name]; ok {
		return on, nil
	}
	return true, nil
}
