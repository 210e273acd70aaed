package custom_http

import (
	"encoding/json"
	"fmt"
	"strings"

	"carebot/internal/providers"
	"carebot/internal/providers/openai_compat"
)

// Adapter is the escape hatch for self-hosted servers speaking a dialect
// we do not know. It sends a best-effort OpenAI-compatible body to the
// user-supplied endpoint verbatim and parses the response leniently.
type Adapter struct{}

func New() Adapter { return Adapter{} }

var _ providers.Adapter = Adapter{}

func (Adapter) BuildRequest(cfg providers.Config, msgs []providers.Message) (providers.Request, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return providers.Request{}, fmt.Errorf("%w: api endpoint is empty", providers.ErrNotConfigured)
	}

	// Image payloads are flattened to text here: an unknown dialect may
	// choke on multipart content arrays.
	wire := make([]providers.Message, 0, len(msgs))
	for _, m := range msgs {
		wire = append(wire, providers.Message{Role: m.Role, Content: providers.FlattenContent(m.Content)})
	}

	payload := map[string]any{
		"model":    cfg.Model,
		"messages": wire,
		"stream":   false,
	}
	if cfg.MaxTokens > 0 {
		payload["max_tokens"] = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		payload["temperature"] = cfg.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Request{}, fmt.Errorf("marshal custom payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if strings.TrimSpace(cfg.APIKey) != "" {
		switch cfg.AuthType {
		case providers.AuthAPIKey:
			headers["X-API-Key"] = cfg.APIKey
		case providers.AuthNone:
		default:
			headers["Authorization"] = "Bearer " + cfg.APIKey
		}
	}
	for k, v := range cfg.Headers {
		headers[k] = strings.ReplaceAll(v, "{{api_key}}", cfg.APIKey)
	}

	return providers.Request{URL: endpoint, Headers: headers, Body: body}, nil
}

// ParseResponse tries the OpenAI shape first, then a handful of common
// text keys, and finally falls back to the raw body text. An empty body
// is still malformed rather than a silent empty reply.
func (Adapter) ParseResponse(body []byte) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			return trimmed, nil
		}
		return "", fmt.Errorf("%w: empty custom response", providers.ErrMalformedResponse)
	}

	if choices, ok := doc["choices"].([]any); ok && len(choices) > 0 {
		if c0, ok := choices[0].(map[string]any); ok {
			if msg, ok := c0["message"].(map[string]any); ok {
				if content := openai_compat.ContentText(msg["content"]); strings.TrimSpace(content) != "" {
					return content, nil
				}
			}
			if text, ok := c0["text"].(string); ok && strings.TrimSpace(text) != "" {
				return text, nil
			}
		}
	}

	for _, key := range []string{"text", "response", "answer", "output_text"} {
		if v, ok := doc[key].(string); ok && strings.TrimSpace(v) != "" {
			return v, nil
		}
	}

	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && trimmed != "{}" {
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: custom response does not contain text", providers.ErrMalformedResponse)
}
