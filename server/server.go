// Package server exposes the gateway over HTTP: chat and streaming chat,
// conversation management, models, tools, settings, and the assist
// endpoints.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"parley/chat"
	"parley/model"
	"parley/provider"
	"parley/store"
	"parley/tools"
)

// Server wires the HTTP handlers to the gateway's core components.
type Server struct {
	orchestrator *chat.Orchestrator
	store        *store.Store
	providers    *provider.Registry
	tools        *tools.Registry
	logger       *slog.Logger
}

// New creates the server.
func New(orchestrator *chat.Orchestrator, st *store.Store, providers *provider.Registry,
	toolReg *tools.Registry, logger *slog.Logger) *Server {
	return &Server{
		orchestrator: orchestrator,
		store:        st,
		providers:    providers,
		tools:        toolReg,
		logger:       logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/v1/chat", s.withUser(s.handleChat))
	mux.HandleFunc("POST /api/v1/chat/stream", s.withUser(s.handleChatStream))
	mux.HandleFunc("POST /api/v1/magic-title", s.withUser(s.handleMagicTitle))
	mux.HandleFunc("POST /api/v1/suggestions", s.withUser(s.handleSuggestions))

	mux.HandleFunc("GET /api/v1/models", s.withUser(s.handleListModels))
	mux.HandleFunc("GET /api/v1/models/info", s.withUser(s.handleShowModel))

	mux.HandleFunc("POST /api/v1/conversations", s.withUser(s.handleCreateConversation))
	mux.HandleFunc("GET /api/v1/conversations", s.withUser(s.handleListConversations))
	mux.HandleFunc("GET /api/v1/conversations/{id}", s.withUser(s.handleGetConversation))
	mux.HandleFunc("PUT /api/v1/conversations/{id}", s.withUser(s.handleRenameConversation))
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", s.withUser(s.handleDeleteConversation))

	mux.HandleFunc("POST /api/v1/conversations/{id}/messages/user", s.withUser(s.handleAppendUserMessage))
	mux.HandleFunc("POST /api/v1/conversations/{id}/messages/assistant", s.withUser(s.handleAppendAssistantMessage))
	mux.HandleFunc("POST /api/v1/conversations/{id}/messages/{message}/variations", s.withUser(s.handleAddVariation))
	mux.HandleFunc("DELETE /api/v1/conversations/{id}/messages/{message}", s.withUser(s.handleDeleteMessage))
	mux.HandleFunc("POST /api/v1/conversations/{id}/messages/{message}/recover", s.withUser(s.handleRecoverMessage))

	mux.HandleFunc("GET /api/v1/tools", s.withUser(s.handleListTools))
	mux.HandleFunc("POST /api/v1/tools/{id}/grant", s.withUser(s.handleGrantTool))
	mux.HandleFunc("DELETE /api/v1/tools/{id}/grant", s.withUser(s.handleRevokeTool))

	mux.HandleFunc("GET /api/v1/settings", s.withUser(s.handleGetSettings))
	mux.HandleFunc("PUT /api/v1/settings", s.withUser(s.handlePutSettings))

	return s.logRequests(mux)
}

// userHandler is an http handler with the authenticated user resolved.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// withUser resolves the caller's identity from the X-User-ID header. The
// gateway sits behind an authenticating proxy that sets it.
func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user identity required"})
			return
		}
		next(w, r, userID)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the error taxonomy onto status codes: caller mistakes to
// 400, missing resources to 404, everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case model.IsClientInput(err):
		status = http.StatusBadRequest
	case model.IsNotFound(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err.Error())
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &model.ClientInputError{Reason: "invalid JSON body"}
	}
	return nil
}
