package httpapi

import (
	"net/http"
)

type pluginJSON struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request, userID int64) {
	enablement, err := s.store.PluginEnablement(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	all := s.manager.Plugins()
	out := make([]pluginJSON, 0, len(all))
	for _, p := range all {
		enabled := true
		if v, ok := enablement[p.Name()]; ok {
			enabled = v
		}
		out = append(out, pluginJSON{
			Name:        p.Name(),
			Title:       p.Title(),
			Description: p.Description(),
			Enabled:     enabled,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": out})
}

func (s *Server) handleTogglePlugin(w http.ResponseWriter, r *http.Request, userID int64) {
	name := r.PathValue("name")
	if _, ok := s.manager.Get(name); !ok {
		writeError(w, http.StatusNotFound, "unknown plugin")
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := s.store.SetPluginEnabled(r.Context(), userID, name, *req.Enabled); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "enabled": *req.Enabled})
}
