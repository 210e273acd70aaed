package registry

import (
	"testing"

	"carebot/internal/providers"
)

func TestForProviderCoversEnum(t *testing.T) {
	for _, p := range []providers.Provider{
		providers.ProviderOpenAI,
		providers.ProviderAnthropic,
		providers.ProviderOllama,
		providers.ProviderCustom,
	} {
		adapter, err := ForProvider(p)
		if err != nil {
			t.Fatalf("adapter for %q: %v", p, err)
		}
		if adapter == nil {
			t.Fatalf("nil adapter for %q", p)
		}
	}
}

func TestForProviderUnknown(t *testing.T) {
	if _, err := ForProvider(providers.Provider("gemini")); err == nil {
		t.Fatalf("expected error for unknown provider kind")
	}
}
