package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"carebot/internal/storage"
	"carebot/internal/suggest"
)

type sendRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Message        string `json:"message"`
	ImageData      string `json:"image_data"`
}

type sendResponse struct {
	ConversationID int64  `json:"conversation_id"`
	Reply          string `json:"reply"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, userID int64) {
	var req sendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.chat.Send(r.Context(), userID, req.ConversationID, req.Message, req.ImageData)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{ConversationID: reply.ConversationID, Reply: reply.Text})
}

type conversationJSON struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toConversationJSON(c storage.Conversation) conversationJSON {
	return conversationJSON{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, userID int64) {
	convs, err := s.store.ListConversations(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]conversationJSON, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationJSON(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
}

type messageJSON struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	conv, err := s.store.ConversationByID(r.Context(), userID, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	msgs, err := s.store.Messages(r.Context(), conv.ID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": toConversationJSON(conv),
		"messages":     out,
	})
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.store.RenameConversation(r.Context(), userID, id, req.Title); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	deleted, err := s.store.DeleteConversations(r.Context(), userID, []int64{id})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if len(deleted) == 0 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleDeleteConversations(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}
	deleted, err := s.store.DeleteConversations(r.Context(), userID, req.IDs)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, userID int64) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := uint64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseUint(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	hits, err := s.store.SearchMessages(r.Context(), userID, term, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	type hitJSON struct {
		ConversationID    int64     `json:"conversation_id"`
		ConversationTitle string    `json:"conversation_title"`
		MessageID         int64     `json:"message_id"`
		Role              string    `json:"role"`
		Snippet           string    `json:"snippet"`
		CreatedAt         time.Time `json:"created_at"`
	}
	out := make([]hitJSON, 0, len(hits))
	for _, h := range hits {
		out = append(out, hitJSON{
			ConversationID:    h.ConversationID,
			ConversationTitle: h.ConversationTitle,
			MessageID:         h.MessageID,
			Role:              h.Role,
			Snippet:           h.Snippet,
			CreatedAt:         h.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, userID int64) {
	var req struct {
		ConversationID int64 `json:"conversation_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	chips := s.suggest.Suggestions(r.Context(), userID, req.ConversationID)
	if chips == nil {
		chips = []suggest.Chip{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": chips})
}
