package anthropic_messages

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"carebot/internal/providers"
)

func TestBuildRequestLiftsSystem(t *testing.T) {
	a := New()
	req, err := a.BuildRequest(providers.Config{
		Endpoint:  "https://api.anthropic.com",
		Model:     "claude-sonnet",
		APIKey:    "key-123",
		MaxTokens: 800,
	}, []providers.Message{
		{Role: providers.RoleSystem, Content: "be kind"},
		{Role: providers.RoleUser, Content: "hello"},
		{Role: providers.RoleAssistant, Content: "hi!"},
		{Role: providers.RoleUser, Content: "how are you"},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if req.URL != "https://api.anthropic.com/v1/messages" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if got := req.Headers["x-api-key"]; got != "key-123" {
		t.Fatalf("unexpected x-api-key %q", got)
	}
	if _, ok := req.Headers["Authorization"]; ok {
		t.Fatalf("Authorization header must not be set for this format")
	}
	if got := req.Headers["anthropic-version"]; got != "2023-06-01" {
		t.Fatalf("unexpected anthropic-version %q", got)
	}

	var payload struct {
		System   string `json:"system"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		MaxTokens int `json:"max_tokens"`
	}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.System != "be kind" {
		t.Fatalf("expected lifted system prompt, got %q", payload.System)
	}
	if len(payload.Messages) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(payload.Messages))
	}
	for _, m := range payload.Messages {
		if m.Role == providers.RoleSystem {
			t.Fatalf("system role leaked into messages array")
		}
	}
	if payload.Messages[0].Role != providers.RoleUser {
		t.Fatalf("messages array must open with a user turn, got %q", payload.Messages[0].Role)
	}
	if payload.MaxTokens != 800 {
		t.Fatalf("expected max_tokens=800, got %d", payload.MaxTokens)
	}
}

func TestBuildRequestDropsLeadingAssistant(t *testing.T) {
	a := New()
	req, err := a.BuildRequest(providers.Config{Endpoint: "https://api.anthropic.com"}, []providers.Message{
		{Role: providers.RoleAssistant, Content: "welcome back"},
		{Role: providers.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	var payload struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Role != providers.RoleUser {
		t.Fatalf("expected single user turn, got %#v", payload.Messages)
	}
}

func TestBuildRequestFlattensImagePayload(t *testing.T) {
	a := New()
	stored := providers.EncodeImagePayload("look at this", "data:image/png;base64,aGVsbG8=")
	req, err := a.BuildRequest(providers.Config{Endpoint: "https://api.anthropic.com"}, []providers.Message{
		{Role: providers.RoleUser, Content: stored},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	var payload struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	got := payload.Messages[0].Content
	if !strings.HasPrefix(got, "look at this") {
		t.Fatalf("expected text to survive flattening, got %q", got)
	}
	if strings.Contains(got, "base64") {
		t.Fatalf("image bytes must not leak into flattened content: %q", got)
	}
	if !strings.Contains(got, "attached an image") {
		t.Fatalf("expected a dropped-image note, got %q", got)
	}
}

func TestBuildRequestNoUserTurn(t *testing.T) {
	a := New()
	_, err := a.BuildRequest(providers.Config{Endpoint: "https://api.anthropic.com"}, []providers.Message{
		{Role: providers.RoleSystem, Content: "be kind"},
	})
	if err == nil {
		t.Fatalf("expected error for message list without a user turn")
	}
}

func TestParseResponse(t *testing.T) {
	a := New()
	text, err := a.ParseResponse([]byte(`{"content":[{"type":"text","text":"Hello!"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if text != "Hello!" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestParseResponseSkipsNonText(t *testing.T) {
	a := New()
	text, err := a.ParseResponse([]byte(`{"content":[{"type":"tool_use"},{"type":"text","text":"after tool"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if text != "after tool" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestParseResponseMalformed(t *testing.T) {
	a := New()
	if _, err := a.ParseResponse([]byte(`{"content":[]}`)); !errors.Is(err, providers.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}
