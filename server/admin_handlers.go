package server

import (
	"net/http"

	"parley/model"
	"parley/store"
)

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.tools.EnsureFresh(); err != nil {
		s.writeError(w, err)
		return
	}

	owned, err := s.store.OwnedToolIDs(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ownedSet := make(map[string]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	type toolView struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Owned       bool   `json:"owned"`
	}
	catalog := s.tools.Catalog()
	views := make([]toolView, len(catalog))
	for i, entry := range catalog {
		views[i] = toolView{
			ID:          entry.ID,
			Name:        entry.Name,
			Description: entry.Description,
			Owned:       ownedSet[entry.ID],
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":   views,
		"version": s.tools.Version(),
	})
}

func (s *Server) handleGrantTool(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if !s.toolRegistered(id) {
		s.writeError(w, &model.NotFoundError{Resource: "Tool"})
		return
	}
	if err := s.store.GrantTool(r.Context(), userID, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (s *Server) handleRevokeTool(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.store.RevokeTool(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) toolRegistered(id string) bool {
	for _, registered := range s.tools.IDs() {
		if registered == id {
			return true
		}
	}
	return false
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request, userID string) {
	settings, err := s.store.Settings(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request, userID string) {
	var settings store.Settings
	if err := decodeJSON(r, &settings); err != nil {
		s.writeError(w, err)
		return
	}
	if settings.MessageHistoryCount < 0 {
		s.writeError(w, &model.ClientInputError{Reason: "message_history_count must not be negative"})
		return
	}

	if err := s.store.SaveSettings(r.Context(), userID, settings); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
