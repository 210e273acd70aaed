package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"carebot/internal/airouter"
	"carebot/internal/chat"
	"carebot/internal/plugins"
	"carebot/internal/plugins/recharge"
	"carebot/internal/providers"
	"carebot/internal/secrets"
	"carebot/internal/storage"
	"carebot/internal/suggest"
)

const maxBodyBytes = 1 << 20

// userHeader carries the authenticated user id, set by the fronting
// auth proxy. The server trusts it blindly; authentication itself
// happens upstream.
const userHeader = "X-User-ID"

type Server struct {
	store     *storage.Store
	chat      *chat.Service
	suggest   *suggest.Service
	router    *airouter.Router
	manager   *plugins.Manager
	resources *recharge.Plugin
	keyring   *secrets.Keyring
	logger    zerolog.Logger
}

type Config struct {
	Store     *storage.Store
	Chat      *chat.Service
	Suggest   *suggest.Service
	Router    *airouter.Router
	Manager   *plugins.Manager
	Resources *recharge.Plugin
	Keyring   *secrets.Keyring
	Logger    zerolog.Logger
}

func NewServer(cfg Config) *Server {
	return &Server{
		store:     cfg.Store,
		chat:      cfg.Chat,
		suggest:   cfg.Suggest,
		router:    cfg.Router,
		manager:   cfg.Manager,
		resources: cfg.Resources,
		keyring:   cfg.Keyring,
		logger:    cfg.Logger,
	}
}

// Register mounts all API routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat/send", s.withUser(s.handleSend))
	mux.HandleFunc("GET /api/chat/conversations", s.withUser(s.handleListConversations))
	mux.HandleFunc("GET /api/chat/conversations/{id}", s.withUser(s.handleGetConversation))
	mux.HandleFunc("PATCH /api/chat/conversations/{id}", s.withUser(s.handleRenameConversation))
	mux.HandleFunc("DELETE /api/chat/conversations/{id}", s.withUser(s.handleDeleteConversation))
	mux.HandleFunc("DELETE /api/chat/conversations", s.withUser(s.handleDeleteConversations))
	mux.HandleFunc("GET /api/chat/search", s.withUser(s.handleSearch))
	mux.HandleFunc("POST /api/chat/suggestions", s.withUser(s.handleSuggestions))

	mux.HandleFunc("GET /api/plugins", s.withUser(s.handleListPlugins))
	mux.HandleFunc("PUT /api/plugins/{name}", s.withUser(s.handleTogglePlugin))

	mux.HandleFunc("POST /api/plugins/checkin", s.withUser(s.handleCheckin))
	mux.HandleFunc("GET /api/plugins/checkin/today", s.withUser(s.handleTodaysCheckin))
	mux.HandleFunc("GET /api/plugins/mood/history", s.withUser(s.handleMoodHistory))

	mux.HandleFunc("GET /api/goals", s.withUser(s.handleListGoals))
	mux.HandleFunc("POST /api/goals", s.withUser(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/complete", s.withUser(s.handleCompleteGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.withUser(s.handleArchiveGoal))

	mux.HandleFunc("GET /api/kanban", s.withUser(s.handleListCards))
	mux.HandleFunc("POST /api/kanban", s.withUser(s.handleCreateCard))
	mux.HandleFunc("PATCH /api/kanban/{id}", s.withUser(s.handleMoveCard))
	mux.HandleFunc("DELETE /api/kanban/{id}", s.withUser(s.handleDeleteCard))

	mux.HandleFunc("GET /api/resources", s.withUser(s.handleListResources))
	mux.HandleFunc("GET /api/resources/quote", s.withUser(s.handleQuote))

	mux.HandleFunc("GET /api/settings/provider", s.withUser(s.handleGetProviderSettings))
	mux.HandleFunc("PUT /api/settings/provider", s.withUser(s.handleSaveProviderSettings))
	mux.HandleFunc("POST /api/settings/provider/test", s.withUser(s.handleTestProvider))
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userHeader)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, http.StatusUnauthorized, "missing or invalid "+userHeader+" header")
			return
		}
		h(w, r, userID)
	}
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// writeDomainError maps the stable error taxonomy onto HTTP statuses.
// The mapping is part of the client contract: a 504 means the model
// was still generating, a 502 means it answered badly or not at all,
// a 409 means the user has not finished provider setup.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, chat.ErrRateLimited):
		var rl *chat.RateLimitedError
		if errors.As(err, &rl) {
			if secs := int64(time.Until(rl.ResetAt).Seconds()); secs > 0 {
				w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
			}
		}
		writeError(w, http.StatusTooManyRequests, "message limit reached for this hour, please try again later")
	case errors.Is(err, providers.ErrNotConfigured):
		writeError(w, http.StatusConflict, "no AI provider is configured; finish setup in settings first")
	case errors.Is(err, providers.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, "the model took too long to respond; it may still be generating")
	case errors.Is(err, providers.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "could not reach the model server")
	case errors.Is(err, providers.ErrUpstreamRejected):
		writeError(w, http.StatusBadGateway, "the model server rejected the request")
	case errors.Is(err, providers.ErrMalformedResponse):
		writeError(w, http.StatusBadGateway, "the model server returned an unexpected response")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
