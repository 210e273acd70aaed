package httpapi

import "net/http"

// The resources library is the landing spot for the "resources"
// suggestion chip action.
func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request, userID int64) {
	writeJSON(w, http.StatusOK, map[string]any{
		"articles": s.resources.Articles(),
		"videos":   s.resources.Videos(),
		"audio":    s.resources.Audio(),
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request, userID int64) {
	writeJSON(w, http.StatusOK, s.resources.Quote(r.Context()))
}
