package providers

import (
	"fmt"
	"strings"
)

// Provider identifies one of the supported LLM wire formats.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderCustom    Provider = "custom"
)

func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderAnthropic:
		return ProviderAnthropic, nil
	case ProviderOllama:
		return ProviderOllama, nil
	case ProviderCustom:
		return ProviderCustom, nil
	default:
		return "", fmt.Errorf("unsupported provider %q", s)
	}
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one ordered entry of the transcript handed to an adapter.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
	AuthNone   = "none"
)

// Config is the per-user provider configuration resolved for one call.
// APIKey is already decrypted at this point; it must never appear in
// errors or logs.
type Config struct {
	Provider    Provider
	Model       string
	Endpoint    string
	APIKey      string
	AuthType    string
	Headers     map[string]string
	MaxTokens   int
	Temperature float64
}

// Normalized resets fields whose meaning is provider-specific so a
// stored config can never carry the previous provider's auth style
// after a switch.
func (c Config) Normalized() Config {
	switch c.Provider {
	case ProviderOpenAI:
		c.AuthType = AuthBearer
		c.Headers = nil
	case ProviderAnthropic:
		c.AuthType = AuthAPIKey
		c.Headers = nil
	case ProviderOllama:
		c.AuthType = AuthNone
		c.APIKey = ""
		c.Headers = nil
	case ProviderCustom:
		if c.AuthType == "" {
			c.AuthType = AuthBearer
		}
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1000
	}
	return c
}

// Request is one fully-built outbound call. The router owns the
// transport; adapters only describe the wire shape.
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Adapter translates between the format-agnostic chat contract and one
// vendor wire format. Implementations are stateless values, safe for
// concurrent use across users.
type Adapter interface {
	BuildRequest(cfg Config, msgs []Message) (Request, error)
	ParseResponse(body []byte) (string, error)
}
