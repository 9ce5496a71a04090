package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/engine"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateSessionRequest starts a new playthrough of a scenario.
type CreateSessionRequest struct {
	Scenario string `json:"scenario"`
}

// SessionHandler manages session lifecycle.
//
// Routes:
//
//	POST /v1/sessions             - Create a session
//	GET /v1/sessions/{id}         - Read a session
//	DELETE /v1/sessions/{id}      - Delete a session
//	POST /v1/sessions/{id}/turn   - Process a player turn
type SessionHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewSessionHandler(e *engine.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		engine: e,
		logger: logger,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)

	case len(parts) == 1:
		id, ok := h.parseID(w, parts[0])
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}

	case len(parts) == 2 && parts[1] == "turn":
		id, ok := h.parseID(w, parts[0])
		if !ok {
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleTurn(w, r, id)

	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", raw, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Scenario == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Scenario is required")
		return
	}

	session, err := h.engine.NewSession(r.Context(), req.Scenario)
	if err != nil {
		h.logger.Error("Failed to create session", "scenario", req.Scenario, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to create session: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(session); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	session, err := h.engine.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Session not found")
			return
		}
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}

	if err := json.NewEncoder(w).Encode(session); err != nil {
		h.logger.Error("Failed to encode session response", "error", err)
	}
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.engine.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
