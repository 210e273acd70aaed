package openai_compat

import (
	"encoding/json"
	"fmt"
	"strings"

	"carebot/internal/providers"
)

// Adapter speaks the OpenAI chat-completions format, which is also the
// lingua franca of local servers (LM Studio, LocalAI, vLLM, Groq, ...).
type Adapter struct{}

func New() Adapter { return Adapter{} }

var _ providers.Adapter = Adapter{}

func (Adapter) BuildRequest(cfg providers.Config, msgs []providers.Message) (providers.Request, error) {
	endpoint, err := providers.EndpointURL(cfg.Endpoint, "/v1/chat/completions")
	if err != nil {
		return providers.Request{}, err
	}

	model := cfg.Model
	if model == "" {
		model = "default"
	}

	payload := map[string]any{
		"model":    model,
		"messages": WireMessages(msgs),
		// Some local servers stream by default unless told not to.
		"stream": false,
	}
	if cfg.MaxTokens > 0 {
		payload["max_tokens"] = cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		payload["temperature"] = cfg.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Request{}, fmt.Errorf("marshal chat completion payload: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if strings.TrimSpace(cfg.APIKey) != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	return providers.Request{URL: endpoint, Headers: headers, Body: body}, nil
}

func (Adapter) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode chat completion response: %v", providers.ErrMalformedResponse, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", providers.ErrMalformedResponse)
	}
	if content := ContentText(resp.Choices[0].Message.Content); strings.TrimSpace(content) != "" {
		return content, nil
	}
	if resp.Choices[0].Text != "" {
		return resp.Choices[0].Text, nil
	}
	return "", fmt.Errorf("%w: missing message content", providers.ErrMalformedResponse)
}

// WireMessages converts stored messages into the chat-completions
// shape, expanding image payloads into the vision multipart content
// array (a text part plus an image_url part). Vision-capable servers
// (OpenAI, LM Studio, vLLM) all accept this encoding.
func WireMessages(msgs []providers.Message) []any {
	out := make([]any, 0, len(msgs))
	for _, m := range msgs {
		p, ok := providers.DecodeImagePayload(m.Content)
		if !ok || p.Image == "" {
			out = append(out, providers.Message{Role: m.Role, Content: providers.FlattenContent(m.Content)})
			continue
		}
		out = append(out, map[string]any{
			"role": m.Role,
			"content": []any{
				map[string]any{"type": "text", "text": p.Text},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": p.Image}},
			},
		})
	}
	return out
}

// ContentText flattens the two content encodings vendors use: a plain
// string, or an array of typed parts with text fields.
func ContentText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				if txt, ok := m["text"].(string); ok {
					parts = append(parts, txt)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
