package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeSource struct {
	enabled map[string]bool
	err     error
}

func (f fakeSource) PluginEnablement(ctx context.Context, userID int64) (map[string]bool, error) {
	return f.enabled, f.err
}

type fakePlugin struct {
	name   string
	text   string
	err    error
	called bool
	onCall func()
}

func (p *fakePlugin) Name() string        { return p.name }
func (p *fakePlugin) Title() string       { return p.name }
func (p *fakePlugin) Description() string { return "" }

func (p *fakePlugin) Context(ctx context.Context, userID int64) (string, error) {
	p.called = true
	if p.onCall != nil {
		p.onCall()
	}
	return p.text, p.err
}

func newTestManager(source EnablementSource, ps ...*fakePlugin) *Manager {
	m := NewManager(ManagerConfig{Source: source, Logger: zerolog.Nop()})
	for _, p := range ps {
		m.Register(p)
	}
	return m
}

func TestCollectContextAggregatesInOrder(t *testing.T) {
	a := &fakePlugin{name: "a", text: "first"}
	b := &fakePlugin{name: "b", text: "second"}
	m := newTestManager(fakeSource{}, a, b)

	got := m.CollectContext(context.Background(), 1)
	if !strings.HasPrefix(got, Preamble) {
		t.Fatalf("context must start with the preamble, got %q", got)
	}
	if !strings.Contains(got, "first\n\nsecond") {
		t.Fatalf("parts out of order: %q", got)
	}
}

func TestCollectContextSkipsDisabledWithoutReading(t *testing.T) {
	disabled := &fakePlugin{name: "off", onCall: func() {
		t.Fatalf("disabled plugin must not be queried")
	}}
	enabled := &fakePlugin{name: "on", text: "X"}
	m := newTestManager(fakeSource{enabled: map[string]bool{"off": false}}, disabled, enabled)

	got := m.CollectContext(context.Background(), 1)
	if !strings.Contains(got, "X") {
		t.Fatalf("enabled plugin output missing: %q", got)
	}
	if disabled.called {
		t.Fatalf("disabled plugin was queried")
	}
}

func TestCollectContextIsolatesFailures(t *testing.T) {
	failing := &fakePlugin{name: "broken", err: errors.New("db down")}
	healthy := &fakePlugin{name: "ok", text: "still here"}
	m := newTestManager(fakeSource{}, failing, healthy)

	got := m.CollectContext(context.Background(), 1)
	if !strings.Contains(got, "still here") {
		t.Fatalf("healthy plugin output missing after sibling failure: %q", got)
	}
}

func TestCollectContextEmptyWhenNothingToAdd(t *testing.T) {
	quiet := &fakePlugin{name: "quiet", text: "  "}
	m := newTestManager(fakeSource{}, quiet)

	if got := m.CollectContext(context.Background(), 1); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestCollectContextEnablementLoadFailure(t *testing.T) {
	p := &fakePlugin{name: "a", text: "X"}
	m := newTestManager(fakeSource{err: errors.New("db down")}, p)

	if got := m.CollectContext(context.Background(), 1); got != "" {
		t.Fatalf("expected empty context when enablement cannot be read, got %q", got)
	}
	if p.called {
		t.Fatalf("plugin must not run when enablement is unknown")
	}
}

func TestEnabledDefaultsTrue(t *testing.T) {
	m := newTestManager(fakeSource{}, &fakePlugin{name: "a"})
	on, err := m.Enabled(context.Background(), 1, "a")
	if err != nil {
		t.Fatalf("enabled: %v", err)
	}
	if !on {
		t.Fatalf("plugins without a stored row must default to enabled")
	}
}
