package airouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"carebot/internal/metrics"
	"carebot/internal/providers"
	"carebot/internal/providers/registry"
	"carebot/internal/storage"
)

// SettingsSource yields the stored provider configuration for a user.
type SettingsSource interface {
	ProviderSettings(ctx context.Context, userID int64) (storage.ProviderSettings, error)
}

// Secrets opens keyring envelopes (API keys, custom headers).
type Secrets interface {
	Open(raw string) (string, error)
}

// Router is the single entry point for upstream LLM calls. It resolves
// the user's configuration, picks the matching adapter and performs one
// bounded HTTP round trip per chat turn. Adapters are stateless, so one
// Router serves all users concurrently.
type Router struct {
	settings SettingsSource
	secrets  Secrets
	client   *http.Client
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

type Config struct {
	Settings SettingsSource
	Secrets  Secrets

	// ConnectTimeout bounds dialing only: a dead endpoint should fail
	// fast. ReadTimeout bounds the whole call: local models can
	// legitimately take minutes to generate, so it is generous. The
	// distinction is part of the router's contract, not a tuning knob.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

func New(cfg Config) *Router {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 300 * time.Second
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Router{
		settings: cfg.Settings,
		secrets:  cfg.Secrets,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ReadTimeout,
		},
		logger:  cfg.Logger,
		metrics: m,
	}
}

// Chat sends the message sequence through the user's configured
// provider and returns the generated text. Failures map onto the
// providers error taxonomy; no automatic retries, since a silent retry
// could double a multi-minute local generation or double-charge a paid
// API.
func (r *Router) Chat(ctx context.Context, userID int64, msgs []providers.Message) (string, error) {
	cfg, err := r.resolveConfig(ctx, userID)
	if err != nil {
		return "", err
	}
	text, err := r.dispatch(ctx, cfg, msgs)
	if err != nil {
		r.metrics.ProviderErrors.WithLabelValues(errorKind(err)).Inc()
		return "", err
	}
	return text, nil
}

// TestConnection performs one minimal round trip with the given
// (unsaved) configuration so a settings page can validate it before
// persisting. Nothing is stored.
func (r *Router) TestConnection(ctx context.Context, cfg providers.Config) (string, error) {
	probe := []providers.Message{{Role: providers.RoleUser, Content: "Reply with only the word: OK"}}
	return r.dispatch(ctx, cfg.Normalized(), probe)
}

func (r *Router) resolveConfig(ctx context.Context, userID int64) (providers.Config, error) {
	row, err := r.settings.ProviderSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return providers.Config{}, providers.ErrNotConfigured
		}
		return providers.Config{}, fmt.Errorf("load provider settings: %w", err)
	}

	if strings.TrimSpace(row.APIEndpoint) == "" {
		return providers.Config{}, fmt.Errorf("%w: api endpoint is empty", providers.ErrNotConfigured)
	}
	kind, err := providers.ParseProvider(row.Provider)
	if err != nil {
		return providers.Config{}, fmt.Errorf("%w: %v", providers.ErrNotConfigured, err)
	}

	cfg := providers.Config{
		Provider:    kind,
		Model:       row.ModelName,
		Endpoint:    row.APIEndpoint,
		AuthType:    row.AuthType,
		MaxTokens:   row.MaxTokens,
		Temperature: row.Temperature,
	}
	if row.EncAPIKey != nil && strings.TrimSpace(*row.EncAPIKey) != "" {
		key, err := r.secrets.Open(*row.EncAPIKey)
		if err != nil {
			return providers.Config{}, fmt.Errorf("decrypt api key: %w", err)
		}
		cfg.APIKey = key
	}
	if row.EncHeadersJSON != nil && strings.TrimSpace(*row.EncHeadersJSON) != "" {
		raw, err := r.secrets.Open(*row.EncHeadersJSON)
		if err != nil {
			return providers.Config{}, fmt.Errorf("decrypt custom headers: %w", err)
		}
		headers := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return providers.Config{}, fmt.Errorf("parse custom headers: %w", err)
		}
		cfg.Headers = headers
	}
	return cfg, nil
}

func (r *Router) dispatch(ctx context.Context, cfg providers.Config, msgs []providers.Message) (string, error) {
	adapter, err := registry.ForProvider(cfg.Provider)
	if err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrNotConfigured, err)
	}

	req, err := adapter.BuildRequest(cfg, msgs)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return "", fmt.Errorf("build upstream request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rej := providers.NewRejectedError(resp.StatusCode, body)
		r.logger.Warn().
			Str("provider", string(cfg.Provider)).
			Int("status", rej.Status).
			Str("body", rej.Body).
			Msg("provider rejected request")
		return "", rej
	}

	text, err := adapter.ParseResponse(body)
	if err != nil {
		if errors.Is(err, providers.ErrMalformedResponse) {
			// Keep the offending shape around for future adapter fixes.
			r.logger.Error().
				Str("provider", string(cfg.Provider)).
				Str("body", truncate(string(body), 512)).
				Msg("unexpected provider response shape")
		}
		return "", err
	}
	return text, nil
}

// classifyTransportError maps the HTTP client's failure modes onto the
// provider error taxonomy. Dial failures (refused, DNS, connect
// timeout) mean the server is unreachable; anything that timed out
// after the connection was established means it is still thinking.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", providers.ErrUpstreamUnavailable, opErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return providers.ErrUpstreamTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return providers.ErrUpstreamTimeout
	}

	return fmt.Errorf("%w: %v", providers.ErrUpstreamUnavailable, err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, providers.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, providers.ErrUpstreamUnavailable):
		return "unavailable"
	case errors.Is(err, providers.ErrUpstreamRejected):
		return "rejected"
	case errors.Is(err, providers.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, providers.ErrNotConfigured):
		return "not_configured"
	default:
		return "other"
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
