package providers

import (
	"errors"
	"testing"
)

func TestParseProvider(t *testing.T) {
	for _, raw := range []string{"openai", " OpenAI ", "ANTHROPIC", "ollama", "custom"} {
		if _, err := ParseProvider(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := ParseProvider("gemini"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestNormalizedResetsAuthOnKindSwitch(t *testing.T) {
	cfg := Config{
		Provider: ProviderAnthropic,
		AuthType: AuthBearer,
		Headers:  map[string]string{"X-Leftover": "from custom"},
	}.Normalized()
	if cfg.AuthType != AuthAPIKey {
		t.Fatalf("anthropic must use api_key auth, got %q", cfg.AuthType)
	}
	if cfg.Headers != nil {
		t.Fatalf("custom headers must be cleared on kind switch")
	}
}

func TestNormalizedOllamaClearsKey(t *testing.T) {
	cfg := Config{Provider: ProviderOllama, APIKey: "stale", AuthType: AuthBearer}.Normalized()
	if cfg.APIKey != "" || cfg.AuthType != AuthNone {
		t.Fatalf("ollama config must carry no credentials, got key=%q auth=%q", cfg.APIKey, cfg.AuthType)
	}
}

func TestNormalizedDefaultsMaxTokens(t *testing.T) {
	cfg := Config{Provider: ProviderOpenAI}.Normalized()
	if cfg.MaxTokens != 1000 {
		t.Fatalf("expected default max tokens 1000, got %d", cfg.MaxTokens)
	}
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/chat/completions", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		got, err := EndpointURL(tc.base, "/v1/chat/completions")
		if err != nil {
			t.Fatalf("endpoint for %q: %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("endpoint for %q: expected %q, got %q", tc.base, tc.want, got)
		}
	}

	if _, err := EndpointURL("", "/v1/chat/completions"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for empty base")
	}
}
