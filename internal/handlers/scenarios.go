package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/narrative-engine/internal/storage"
)

// ScenarioHandler serves the scenario catalog.
//
// Routes:
//
//	GET /v1/scenarios            - List scenarios (name -> filename)
//	GET /v1/scenarios/{filename} - Read a scenario definition
type ScenarioHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewScenarioHandler(storage storage.Storage, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleRead(w, r, filename)
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.storage.ListScenarios(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scenarios", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list scenarios")
		return
	}

	if err := json.NewEncoder(w).Encode(scenarios); err != nil {
		h.logger.Error("Failed to encode scenarios response", "error", err)
	}
}

func (h *ScenarioHandler) handleRead(w http.ResponseWriter, r *http.Request, filename string) {
	s, err := h.storage.GetScenario(r.Context(), filename)
	if err != nil {
		h.logger.Warn("Scenario not found", "filename", filename, "error", err)
		writeError(w, h.logger, http.StatusNotFound, "Scenario not found")
		return
	}

	if err := json.NewEncoder(w).Encode(s); err != nil {
		h.logger.Error("Failed to encode scenario response", "error", err)
	}
}
