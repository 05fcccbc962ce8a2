package server

import (
	"net/http"

	"parley/model"
	"parley/store"
)

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request, userID string) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if payload.Title == "" {
		payload.Title = "New Conversation"
	}

	conv, err := s.store.CreateConversation(r.Context(), userID, payload.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request, userID string) {
	convs, err := s.store.ListConversations(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": convs})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	conv, err := s.store.GetConversation(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	messages, err := s.store.DisplayMessages(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if messages == nil {
		messages = []store.StoredMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
		"updated_at": conv.UpdatedAt,
		"messages":   messages,
	})
}

func (s *Server) handleRenameConversation(w http.ResponseWriter, r *http.Request, userID string) {
	var payload struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if payload.Title == "" {
		s.writeError(w, &model.ClientInputError{Reason: "title is required"})
		return
	}

	if err := s.store.RenameConversation(r.Context(), userID, r.PathValue("id"), payload.Title); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request, userID string) {
	if err := s.store.DeleteConversation(r.Context(), userID, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAppendUserMessage(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if _, err := s.store.GetConversation(r.Context(), userID, id); err != nil {
		s.writeError(w, err)
		return
	}

	var payload struct {
		Content string        `json:"content"`
		Images  []model.Image `json:"images"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if payload.Content == "" {
		s.writeError(w, &model.ClientInputError{Reason: "content is required"})
		return
	}

	msg, err := s.store.AppendUserMessage(r.Context(), id, payload.Content, payload.Images)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleAppendAssistantMessage(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if _, err := s.store.GetConversation(r.Context(), userID, id); err != nil {
		s.writeError(w, err)
		return
	}

	var payload struct {
		Content   string                 `json:"content"`
		Provider  string                 `json:"provider"`
		Model     string                 `json:"model"`
		ToolsUsed []model.ToolCallResult `json:"tools_used"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if payload.Content == "" {
		s.writeError(w, &model.ClientInputError{Reason: "content is required"})
		return
	}

	msg, err := s.store.AppendAssistantMessage(r.Context(), id, store.Variation{
		Content:   payload.Content,
		Provider:  payload.Provider,
		Model:     payload.Model,
		ToolsUsed: payload.ToolsUsed,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleAddVariation(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")
	if _, err := s.store.GetConversation(r.Context(), userID, id); err != nil {
		s.writeError(w, err)
		return
	}

	var payload struct {
		Content   string                 `json:"content"`
		Provider  string                 `json:"provider"`
		Model     string                 `json:"model"`
		ToolsUsed []model.ToolCallResult `json:"tools_used"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}
	if payload.Content == "" {
		s.writeError(w, &model.ClientInputError{Reason: "content is required"})
		return
	}

	variation, err := s.store.AddVariation(r.Context(), r.PathValue("message"), store.Variation{
		Content:   payload.Content,
		Provider:  payload.Provider,
		Model:     payload.Model,
		ToolsUsed: payload.ToolsUsed,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, variation)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request, userID string) {
	err := s.store.SoftDeleteMessage(r.Context(), userID, r.PathValue("id"), r.PathValue("message"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRecoverMessage(w http.ResponseWriter, r *http.Request, userID string) {
	err := s.store.RecoverMessage(r.Context(), userID, r.PathValue("id"), r.PathValue("message"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recovered"})
}
