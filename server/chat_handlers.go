package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"parley/chat"
	"parley/model"
)

type chatPayload struct {
	Provider       string          `json:"provider"`
	Model          string          `json:"model"`
	Messages       []model.Message `json:"messages"`
	ConversationID string          `json:"conversation"`
	UseTools       bool            `json:"useTools"`
}

func (p chatPayload) turnRequest(userID string) chat.TurnRequest {
	return chat.TurnRequest{
		UserID:         userID,
		Provider:       p.Provider,
		Model:          p.Model,
		Messages:       p.Messages,
		ConversationID: p.ConversationID,
		UseTools:       p.UseTools,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	var payload chatPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.orchestrator.Turn(r.Context(), payload.turnRequest(userID))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if resp.Err != "" {
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleChatStream serves the turn as server-sent events: one data frame
// per chunk, a closing frame with tool results when tools ran, and error
// chunks inline since the status line is already committed.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request, userID string) {
	var payload chatPayload
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	emit := func(chunk model.StreamChunk) error {
		data, err := json.Marshal(chunk)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := s.orchestrator.StreamTurn(r.Context(), payload.turnRequest(userID), emit)
	if err != nil {
		// Nothing streamed yet for validation and lookup errors; the
		// status line is still ours to set.
		s.writeError(w, err)
	}
}

func (s *Server) handleMagicTitle(w http.ResponseWriter, r *http.Request, userID string) {
	var payload struct {
		Provider       string `json:"provider"`
		Model          string `json:"model"`
		ConversationID string `json:"conversation"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}

	title, err := s.orchestrator.MagicTitle(r.Context(), chat.MagicTitleRequest{
		UserID:         userID,
		Provider:       payload.Provider,
		Model:          payload.Model,
		ConversationID: payload.ConversationID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"magic_title": title})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, userID string) {
	var payload struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Count    int    `json:"count"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		s.writeError(w, err)
		return
	}

	suggestions, err := s.orchestrator.Suggestions(r.Context(), chat.SuggestionsRequest{
		Provider: payload.Provider,
		Model:    payload.Model,
		Count:    payload.Count,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request, userID string) {
	providerID := r.URL.Query().Get("provider")
	if providerID == "" {
		s.writeError(w, &model.ClientInputError{Reason: "provider query parameter is required"})
		return
	}
	prov, err := s.providers.Resolve(providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	models, err := prov.ListModels(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleShowModel(w http.ResponseWriter, r *http.Request, userID string) {
	providerID := r.URL.Query().Get("provider")
	name := r.URL.Query().Get("name")
	if providerID == "" || name == "" {
		s.writeError(w, &model.ClientInputError{Reason: "provider and name query parameters are required"})
		return
	}
	prov, err := s.providers.Resolve(providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	info, err := prov.ShowModel(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
