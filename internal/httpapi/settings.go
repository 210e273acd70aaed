package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carebot/internal/providers"
	"carebot/internal/storage"
)

type providerSettingsRequest struct {
	Provider    string            `json:"provider"`
	ModelName   string            `json:"model_name"`
	APIEndpoint string            `json:"api_endpoint"`
	APIKey      string            `json:"api_key"`
	AuthType    string            `json:"auth_type"`
	Headers     map[string]string `json:"headers"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
}

type providerSettingsJSON struct {
	Provider    string    `json:"provider"`
	ModelName   string    `json:"model_name"`
	APIEndpoint string    `json:"api_endpoint"`
	AuthType    string    `json:"auth_type"`
	APIKeySet   bool      `json:"api_key_set"`
	HeadersSet  bool      `json:"headers_set"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Server) handleGetProviderSettings(w http.ResponseWriter, r *http.Request, userID int64) {
	settings, err := s.store.ProviderSettings(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"configured": false})
			return
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": true,
		"settings": providerSettingsJSON{
			Provider:    settings.Provider,
			ModelName:   settings.ModelName,
			APIEndpoint: settings.APIEndpoint,
			AuthType:    settings.AuthType,
			APIKeySet:   settings.EncAPIKey != nil,
			HeadersSet:  settings.EncHeadersJSON != nil,
			MaxTokens:   settings.MaxTokens,
			Temperature: settings.Temperature,
			UpdatedAt:   settings.UpdatedAt,
		},
	})
}

// handleSaveProviderSettings replaces the configuration wholesale.
// Switching provider kind resets auth style and custom headers; a
// blank api_key or absent headers keep their previously stored values
// only when the provider kind is unchanged.
func (s *Server) handleSaveProviderSettings(w http.ResponseWriter, r *http.Request, userID int64) {
	var req providerSettingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, ok := s.configFromRequest(w, req)
	if !ok {
		return
	}

	settings := storage.ProviderSettings{
		UserID:      userID,
		Provider:    string(cfg.Provider),
		ModelName:   cfg.Model,
		APIEndpoint: cfg.Endpoint,
		AuthType:    cfg.AuthType,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	// Secrets absent from the request keep their stored values across
	// edits that don't resupply them, but never across a provider
	// switch.
	var existing storage.ProviderSettings
	sameKind := false
	if cfg.APIKey == "" || len(cfg.Headers) == 0 {
		prev, err := s.store.ProviderSettings(r.Context(), userID)
		switch {
		case err == nil:
			existing = prev
			sameKind = existing.Provider == settings.Provider
		case !errors.Is(err, storage.ErrNotFound):
			s.writeDomainError(w, err)
			return
		}
	}

	switch {
	case cfg.APIKey != "":
		sealed, err := s.keyring.Seal(cfg.APIKey)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		settings.EncAPIKey = &sealed
	case cfg.Provider != providers.ProviderOllama && sameKind:
		settings.EncAPIKey = existing.EncAPIKey
	}

	if len(cfg.Headers) > 0 {
		raw, err := json.Marshal(cfg.Headers)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		sealed, err := s.keyring.Seal(string(raw))
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		settings.EncHeadersJSON = &sealed
	} else if sameKind {
		settings.EncHeadersJSON = existing.EncHeadersJSON
	}

	if err := s.store.SaveProviderSettings(r.Context(), settings); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleTestProvider runs one minimal round trip against the supplied
// configuration without persisting anything. A blank api_key falls back
// to the stored one when the provider kind matches.
func (s *Server) handleTestProvider(w http.ResponseWriter, r *http.Request, userID int64) {
	var req providerSettingsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, ok := s.configFromRequest(w, req)
	if !ok {
		return
	}

	if cfg.APIKey == "" && cfg.Provider != providers.ProviderOllama {
		existing, err := s.store.ProviderSettings(r.Context(), userID)
		if err == nil && existing.Provider == string(cfg.Provider) && existing.EncAPIKey != nil {
			key, err := s.keyring.Open(*existing.EncAPIKey)
			if err != nil {
				s.writeDomainError(w, err)
				return
			}
			cfg.APIKey = key
		}
	}

	reply, err := s.router.TestConnection(r.Context(), cfg)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": userFacingTestError(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reply": reply})
}

func (s *Server) configFromRequest(w http.ResponseWriter, req providerSettingsRequest) (providers.Config, bool) {
	provider, err := providers.ParseProvider(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown provider")
		return providers.Config{}, false
	}
	endpoint := strings.TrimSpace(req.APIEndpoint)
	if endpoint == "" {
		writeError(w, http.StatusBadRequest, "api_endpoint is required")
		return providers.Config{}, false
	}
	cfg := providers.Config{
		Provider:    provider,
		Model:       strings.TrimSpace(req.ModelName),
		Endpoint:    endpoint,
		APIKey:      strings.TrimSpace(req.APIKey),
		AuthType:    strings.TrimSpace(req.AuthType),
		Headers:     req.Headers,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	return cfg.Normalized(), true
}

// userFacingTestError keeps the taxonomy visible to the settings UI
// without leaking anything from the request.
func userFacingTestError(err error) string {
	switch {
	case errors.Is(err, providers.ErrUpstreamTimeout):
		return "the server took too long to respond"
	case errors.Is(err, providers.ErrUpstreamUnavailable):
		return "could not reach the server"
	case errors.Is(err, providers.ErrUpstreamRejected):
		var rejected *providers.RejectedError
		if errors.As(err, &rejected) {
			return "the server rejected the request (status " + strconv.Itoa(rejected.Status) + ")"
		}
		return "the server rejected the request"
	case errors.Is(err, providers.ErrMalformedResponse):
		return "the server returned an unexpected response"
	case errors.Is(err, providers.ErrNotConfigured):
		return "the configuration is incomplete"
	default:
		return "connection test failed"
	}
}
