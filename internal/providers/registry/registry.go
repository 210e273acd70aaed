package registry

import (
	"fmt"

	"carebot/internal/providers"
	"carebot/internal/providers/anthropic_messages"
	"carebot/internal/providers/custom_http"
	"carebot/internal/providers/ollama_chat"
	"carebot/internal/providers/openai_compat"
)

// ForProvider maps the closed provider enum onto its adapter. Adapters
// are stateless, so the same value serves every user.
func ForProvider(p providers.Provider) (providers.Adapter, error) {
	switch p {
	case providers.ProviderOpenAI:
		return openai_compat.New(), nil
	case providers.ProviderAnthropic:
		return anthropic_messages.New(), nil
	case providers.ProviderOllama:
		return ollama_chat.New(), nil
	case providers.ProviderCustom:
		return custom_http.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", p)
	}
}
