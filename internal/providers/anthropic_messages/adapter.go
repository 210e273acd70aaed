package anthropic_messages

import (
	"encoding/json"
	"fmt"
	"strings"

	"carebot/internal/providers"
)

const apiVersion = "2023-06-01"

// Adapter speaks the Anthropic Messages API. Unlike the other formats,
// Anthropic has no system role: system entries must be lifted out of
// the messages array into a top-level field, and the remaining array
// must open with a user turn.
type Adapter struct{}

func New() Adapter { return Adapter{} }

var _ providers.Adapter = Adapter{}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (Adapter) BuildRequest(cfg providers.Config, msgs []providers.Message) (providers.Request, error) {
	endpoint, err := providers.EndpointURL(cfg.Endpoint, "/v1/messages")
	if err != nil {
		return providers.Request{}, err
	}

	system, turns := splitSystem(msgs)
	if len(turns) == 0 {
		return providers.Request{}, fmt.Errorf("no user message to send")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		// max_tokens is mandatory in this format.
		maxTokens = 1000
	}

	payload := map[string]any{
		"model":      cfg.Model,
		"messages":   turns,
		"max_tokens": maxTokens,
	}
	if system != "" {
		payload["system"] = system
	}
	if cfg.Temperature > 0 {
		payload["temperature"] = cfg.Temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return providers.Request{}, fmt.Errorf("marshal messages payload: %w", err)
	}

	headers := map[string]string{
		"Content-Type":      "application/json",
		"anthropic-version": apiVersion,
	}
	if strings.TrimSpace(cfg.APIKey) != "" {
		headers["x-api-key"] = cfg.APIKey
	}

	return providers.Request{URL: endpoint, Headers: headers, Body: body}, nil
}

// splitSystem lifts system entries into one top-level string and drops
// leading assistant turns, since some servers reject an assistant-first
// messages array.
func splitSystem(msgs []providers.Message) (string, []message) {
	var system []string
	turns := make([]message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == providers.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		if len(turns) == 0 && m.Role != providers.RoleUser {
			continue
		}
		turns = append(turns, message{Role: m.Role, Content: providers.FlattenContent(m.Content)})
	}
	return strings.Join(system, "\n\n"), turns
}

func (Adapter) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode messages response: %v", providers.ErrMalformedResponse, err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text block in messages response", providers.ErrMalformedResponse)
}
