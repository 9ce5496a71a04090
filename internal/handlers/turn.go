package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/engine"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

// handleTurn runs one player turn against the session.
func (h *SessionHandler) handleTurn(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.SessionID = id
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.engine.ProcessTurn(r.Context(), id, req.Input)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Session not found")
			return
		}
		if errors.Is(err, engine.ErrSessionBusy) {
			writeError(w, h.logger, http.StatusConflict, "A turn is already being processed for this session")
			return
		}
		h.logger.Error("Failed to process turn", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to process turn")
		return
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode turn response", "error", err)
	}
}
