package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/narrative-engine/internal/engine"
	"github.com/jwebster45206/narrative-engine/internal/services"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name:  "Forest Test",
		Story: "A quiet forest hides an old secret.",
		Locations: map[string]scenario.Location{
			"forest_edge": {Name: "Forest Edge", Exits: map[string]string{"north": "cave"}},
			"cave":        {Name: "Cave"},
		},
		OpeningLocation: "forest_edge",
		Characters: []scenario.SeedCharacter{
			{ID: "varnas", Name: "Varnas", Archetype: "companion", Location: "forest_edge"},
		},
	}
}

func setupSessionHandler(t *testing.T) (*SessionHandler, *storage.MockStorage, *services.MockLLMAPI) {
	t.Helper()
	store := storage.NewMockStorage()
	store.AddScenario("forest.json", testScenario())

	llm := services.NewMockLLMAPI()
	logger := slog.New(slog.DiscardHandler)
	e := engine.New(llm, store, rand.New(rand.NewSource(5)), logger)
	return NewSessionHandler(e, logger), store, llm
}

func TestSessionHandler_Create(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	body, _ := json.Marshal(CreateSessionRequest{Scenario: "forest.json"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var session state.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, "forest_edge", session.World.Location)
	assert.Len(t, session.Characters, 1)
}

func TestSessionHandler_CreateValidation(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader([]byte(`not json`)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, _ := json.Marshal(CreateSessionRequest{Scenario: "missing.json"})
	req = httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Read(t *testing.T) {
	handler, store, _ := setupSessionHandler(t)

	session := state.NewSession("forest.json", state.NewWorldState(testScenario()))
	require.NoError(t, store.SaveSession(context.Background(), session.ID, session))

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+session.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var loaded state.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loaded))
	assert.Equal(t, session.ID, loaded.ID)
}

func TestSessionHandler_ReadNotFound(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_InvalidID(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/not-a-uuid", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_Delete(t *testing.T) {
	handler, store, _ := setupSessionHandler(t)

	session := state.NewSession("forest.json", state.NewWorldState(testScenario()))
	require.NoError(t, store.SaveSession(context.Background(), session.ID, session))

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+session.ID.String(), nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	loaded, err := store.LoadSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionHandler_Turn(t *testing.T) {
	handler, _, llm := setupSessionHandler(t)

	body, _ := json.Marshal(CreateSessionRequest{Scenario: "forest.json"})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var session state.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	llm.QueueGenerateResults(&chat.GenerateResult{
		Text:       "The pines sway.",
		StopReason: chat.StopReasonEndTurn,
	})

	turnBody, _ := json.Marshal(chat.TurnRequest{Input: "I look around."})
	req = httptest.NewRequest(http.MethodPost, "/v1/sessions/"+session.ID.String()+"/turn", bytes.NewReader(turnBody))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chat.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "The pines sway.", resp.Text)
	assert.Equal(t, "narrative", resp.Mode)
}

func TestSessionHandler_TurnBusy(t *testing.T) {
	handler, store, _ := setupSessionHandler(t)

	session := state.NewSession("forest.json", state.NewWorldState(testScenario()))
	require.NoError(t, store.SaveSession(context.Background(), session.ID, session))

	token, err := store.AcquireTurnLock(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	turnBody, _ := json.Marshal(chat.TurnRequest{Input: "I look around."})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+session.ID.String()+"/turn", bytes.NewReader(turnBody))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, store.ReleaseTurnLock(context.Background(), session.ID, token))
}

func TestSessionHandler_TurnValidation(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	// Empty input is rejected before any engine work.
	turnBody, _ := json.Marshal(chat.TurnRequest{Input: ""})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+uuid.NewString()+"/turn", bytes.NewReader(turnBody))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	turnBody, _ = json.Marshal(chat.TurnRequest{Input: "hello"})
	req = httptest.NewRequest(http.MethodPost, "/v1/sessions/"+uuid.NewString()+"/turn", bytes.NewReader(turnBody))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_MethodNotAllowed(t *testing.T) {
	handler, _, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	req = httptest.NewRequest(http.MethodPatch, "/v1/sessions/"+uuid.NewString(), nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
