package ollama_chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"carebot/internal/providers"
)

// Adapter speaks the Ollama /api/chat format. Local Ollama servers
// need no authentication; generation knobs travel in an options block.
type Adapter struct{}

func New() Adapter { return Adapter{} }

var _ providers.Adapter = Adapter{}

func (Adapter) BuildRequest(cfg providers.Config, msgs []providers.Message) (providers.Request, error) {
	endpoint, err := providers.EndpointURL(cfg.Endpoint, "/api/chat")
	if err != nil {
		return providers.Request{}, err
	}

	options := map[string]any{}
	if cfg.Temperature > 0 {
		options["temperature"] = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		options["num_predict"] = cfg.MaxTokens
	}

	payload := map[string]any{
		"model":    cfg.Model,
		"messages": wireMessages(msgs),
		"stream":   false,
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Request{}, fmt.Errorf("marshal ollama payload: %w", err)
	}

	return providers.Request{
		URL:     endpoint,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}, nil
}

type wireMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// wireMessages unpacks stored image payloads into Ollama's native
// shape: plain text content plus a per-message images array of raw
// base64 (no data URL prefix).
func wireMessages(msgs []providers.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		p, ok := providers.DecodeImagePayload(m.Content)
		if !ok {
			out = append(out, wireMessage{Role: m.Role, Content: m.Content})
			continue
		}
		wm := wireMessage{Role: m.Role, Content: p.Text}
		if img := stripDataURL(p.Image); img != "" {
			wm.Images = []string{img}
		}
		out = append(out, wm)
	}
	return out
}

func stripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ";base64,"); i >= 0 {
		return s[i+len(";base64,"):]
	}
	return s
}

func (Adapter) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode ollama response: %v", providers.ErrMalformedResponse, err)
	}
	if resp.Message == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return "", fmt.Errorf("%w: missing message content in ollama response", providers.ErrMalformedResponse)
	}
	return resp.Message.Content, nil
}
