package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/internal/services"
	"github.com/jwebster45206/narrative-engine/internal/storage"
	"github.com/jwebster45206/narrative-engine/pkg/actor"
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
			"cave":        {Name: "Cave", Exits: map[string]string{"south": "forest_edge"}},
		},
		OpeningLocation:  "forest_edge",
		OpeningTimeOfDay: "morning",
		Characters: []scenario.SeedCharacter{
			{ID: "varnas", Name: "Varnas", Archetype: "companion", Location: "forest_edge", Inventory: []string{"rusty_key"}},
		},
	}
}

// routeMeta answers meta calls by the system prompt that was sent: the
// assessor, summarizer, and placeholder prompts are distinguishable.
func routeMeta(assessment string) func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	return func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		system := messages[0].Content
		switch {
		case strings.Contains(system, "gamemaster"):
			return assessment, nil
		case strings.Contains(system, "Summarize"):
			return "They spoke of the cave.", nil
		default:
			return "[Image: tall pines at dawn]", nil
		}
	}
}

func acceptAssessment() string {
	return `{"odds":"Accept","success_message":"","failure_message":""}`
}

func newTestEngine(t *testing.T) (*Engine, *services.MockLLMAPI, *storage.MockStorage) {
	t.Helper()
	store := storage.NewMockStorage()
	store.AddScenario("forest.json", testScenario())

	llm := services.NewMockLLMAPI()
	llm.MetaFunc = routeMeta(acceptAssessment())

	e := New(llm, store, rand.New(rand.NewSource(11)), slog.New(slog.DiscardHandler))
	return e, llm, store
}

func newTestSession(t *testing.T, e *Engine) *state.Session {
	t.Helper()
	session, err := e.NewSession(context.Background(), "forest.json")
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return session
}

func toolResult(name string, input any) *chat.GenerateResult {
	raw, _ := json.Marshal(input)
	return &chat.GenerateResult{
		Text:       "",
		StopReason: chat.StopReasonToolUse,
		Request:    chat.NewActionRequest(name, raw),
	}
}

func TestEngine_NewSession(t *testing.T) {
	e, _, _ := newTestEngine(t)
	session := newTestSession(t, e)

	if session.World.Location != "forest_edge" {
		t.Errorf("Expected opening location, got %q", session.World.Location)
	}
	if len(session.Characters) != 1 || session.Characters[0].ID != "varnas" {
		t.Errorf("Expected seeded varnas, got %+v", session.Characters)
	}
	if session.World.Mode.IsDialogue() {
		t.Error("Sessions must open in narrative mode")
	}
}

func TestEngine_ProcessTurn_SessionNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.ProcessTurn(context.Background(), uuid.New(), "hello"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestEngine_ProcessTurn_PlainNarration(t *testing.T) {
	e, llm, store := newTestEngine(t)
	session := newTestSession(t, e)

	llm.QueueGenerateResults(&chat.GenerateResult{
		Text:       "The pines sway in the wind.",
		StopReason: chat.StopReasonEndTurn,
	})

	resp, err := e.ProcessTurn(context.Background(), session.ID, "I look around.")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.Text != "The pines sway in the wind." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
	if resp.Mode != "narrative" {
		t.Errorf("Expected narrative mode, got %q", resp.Mode)
	}
	if resp.Placeholders == "" {
		t.Error("Expected a placeholder for an ordinary narrative turn")
	}

	saved, _ := store.LoadSession(context.Background(), session.ID)
	if len(saved.NarrativeHistory) != 2 {
		t.Fatalf("Expected user + agent messages, got %d", len(saved.NarrativeHistory))
	}
	if saved.NarrativeHistory[0].Role != chat.ChatRoleUser || saved.NarrativeHistory[1].Role != chat.ChatRoleAgent {
		t.Error("Unexpected history roles")
	}
	if saved.World.LastInput != "I look around." {
		t.Errorf("LastInput not recorded: %q", saved.World.LastInput)
	}
}

func TestEngine_ProcessTurn_StartDialogue(t *testing.T) {
	e, llm, store := newTestEngine(t)
	session := newTestSession(t, e)

	llm.QueueGenerateResults(toolResult(state.RequestStartDialogue, state.StartDialogueParams{CharacterID: "varnas"}))

	resp, err := e.ProcessTurn(context.Background(), session.ID, "I greet Varnas.")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.Mode != "dialogue" || resp.Partner != "varnas" {
		t.Errorf("Expected dialogue with varnas, got mode=%q partner=%q", resp.Mode, resp.Partner)
	}
	if resp.Placeholders != "" {
		t.Error("Placeholders must be suppressed when a request stops the turn")
	}

	// The request and its result must sit adjacent in narrative history.
	saved, _ := store.LoadSession(context.Background(), session.ID)
	h := saved.NarrativeHistory
	if len(h) != 3 {
		t.Fatalf("Expected user, request, result messages, got %d", len(h))
	}
	if h[1].Request == nil || h[1].Request.Name != state.RequestStartDialogue {
		t.Fatal("Expected request on the agent message")
	}
	if h[2].ResultFor != h[1].Request.ID {
		t.Errorf("Result must reference the request id: %q vs %q", h[2].ResultFor, h[1].Request.ID)
	}
	if len(saved.DialogueHistory) != 0 {
		t.Error("Dialogue history must start empty")
	}
}

func TestEngine_ProcessTurn_UpdateStateContinues(t *testing.T) {
	e, llm, store := newTestEngine(t)
	session := newTestSession(t, e)

	llm.QueueGenerateResults(
		toolResult(state.RequestUpdateState, state.UpdateStateParams{Location: "cave"}),
		&chat.GenerateResult{Text: "You step into the cave.", StopReason: chat.StopReasonEndTurn},
	)

	resp, err := e.ProcessTurn(context.Background(), session.ID, "I walk north.")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.Text != "You step into the cave." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}

	if calls := llm.GetGenerateCalls(); len(calls) != 2 {
		t.Errorf("Expected generation to resume after the request, got %d calls", len(calls))
	}

	saved, _ := store.LoadSession(context.Background(), session.ID)
	if saved.World.Location != "cave" {
		t.Errorf("Expected player in cave, got %q", saved.World.Location)
	}
	h := saved.NarrativeHistory
	if len(h) != 4 {
		t.Fatalf("Expected 4 history messages, got %d", len(h))
	}
	if h[1].Request == nil || h[2].ResultFor != h[1].Request.ID {
		t.Error("Request/result pair broken in history")
	}
}

func TestEngine_ProcessTurn_DialogueTurn(t *testing.T) {
	e, llm, store := newTestEngine(t)
	session := newTestSession(t, e)
	session.World.Mode = state.Dialogue("varnas")
	if err := store.SaveSession(context.Background(), session.ID, session); err != nil {
		t.Fatal(err)
	}

	llm.QueueGenerateResults(&chat.GenerateResult{
		Text:       "\"Well met, traveler.\"",
		StopReason: chat.StopReasonEndTurn,
	})

	resp, err := e.ProcessTurn(context.Background(), session.ID, "Hello, Varnas.")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.Mode != "dialogue" {
		t.Errorf("Expected dialogue to continue, got %q", resp.Mode)
	}
	if resp.Placeholders != "" {
		t.Error("Placeholders must be suppressed in dialogue")
	}

	saved, _ := store.LoadSession(context.Background(), session.ID)
	if len(saved.DialogueHistory) != 2 {
		t.Errorf("Expected dialogue history, got %d messages", len(saved.DialogueHistory))
	}
	if len(saved.NarrativeHistory) != 0 {
		t.Error("Dialogue turns must not touch narrative history")
	}

	var varnas = saved.Characters[0]
	if len(varnas.Dialogue) != 2 {
		t.Fatalf("Expected both utterances in character memory, got %d", len(varnas.Dialogue))
	}
	if varnas.Dialogue[0].Speaker != "player" || varnas.Dialogue[1].Speaker != "varnas" {
		t.Errorf("Unexpected speakers: %+v", varnas.Dialogue)
	}
}

func TestEngine_ProcessTurn_EndDialogue(t *testing.T) {
	e, llm, store := newTestEngine(t)
	session := newTestSession(t, e)
	session.World.Mode = state.Dialogue("varnas")
	session.DialogueHistory = []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "Tell me about the cave."},
		{Role: chat.ChatRoleAgent, Content: "\"It is dangerous.\""},
	}
	session.Characters[0].Dialogue = append(session.Characters[0].Dialogue,
		actor.DialogueEntry{Speaker: "player", Utterance: "Tell me about the cave."},
		actor.DialogueEntry{Speaker: "varnas", Utterance: "It is dangerous."},
	)
	if err := store.SaveSession(context.Background(), session.ID, session); err != nil {
		t.Fatal(err)
	}

	llm.QueueGenerateResults(toolResult(state.RequestEndDialogue, struct{}{}))

	resp, err := e.ProcessTurn(context.Background(), session.ID, "Farewell.")
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.Mode != "narrative" {
		t.Errorf("Expected narrative mode after end_dialogue, got %q", resp.Mode)
	}

	saved, _ := store.LoadSession(context.Background(), session.ID)
	if len(saved.DialogueHistory) != 0 {
		t.Errorf("Expected dialogue history reset, got %d messages", len(saved.DialogueHistory))
	}
	if !strings.Contains(saved.World.Summary, "They spoke of the cave.") {
		t.Errorf("Expected conversation summary in world state, got %q", saved.World.Summary)
	}
}

func TestEngine_ProcessTurn_FailedActionSkipsUpdate(t *testing.T) {
	e, llm, store := newTestEngine(t)
	session := newTestSession(t, e)

	llm.MetaFunc = routeMeta(`{"odds":"Impossible","success_message":"","failure_message":"The cliff is sheer."}`)
	llm.QueueGenerateResults(
		toolResult(state.RequestUpdateState, state.UpdateStateParams{Location: "cave"}),
		&chat.GenerateResult{Text: "You slide back down.", StopReason: chat.StopReasonEndTurn},
	)

	if _, err := e.ProcessTurn(context.Background(), session.ID, "I scale the cliff."); err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	saved, _ := store.LoadSession(context.Background(), session.ID)
	if saved.World.Location != "forest_edge" {
		t.Errorf("Failed action must not move the player, got %q", saved.World.Location)
	}

	// The narrator must have been told the attempt failed.
	calls := llm.GetGenerateCalls()
	first := calls[0].Messages
	last := first[len(first)-1]
	if !strings.Contains(last.Content, "fails") {
		t.Errorf("Expected failure hint in the prompt, got %q", last.Content)
	}
}

func TestEngine_ProcessTurn_AssessmentFailureDegradesToAccept(t *testing.T) {
	e, llm, _ := newTestEngine(t)
	session := newTestSession(t, e)

	llm.MetaFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "not json at all", nil
	}
	llm.QueueGenerateResults(&chat.GenerateResult{Text: "The forest waits.", StopReason: chat.StopReasonEndTurn})

	resp, err := e.ProcessTurn(context.Background(), session.ID, "I look around.")
	if err != nil {
		t.Fatalf("A broken assessor must not block the turn: %v", err)
	}
	if resp.Text != "The forest waits." {
		t.Errorf("Unexpected text: %q", resp.Text)
	}
}

func TestEngine_ProcessTurn_SessionBusy(t *testing.T) {
	e, _, store := newTestEngine(t)
	session := newTestSession(t, e)

	token, err := store.AcquireTurnLock(context.Background(), session.ID)
	if err != nil || token == "" {
		t.Fatalf("Failed to pre-acquire lock: token=%q err=%v", token, err)
	}

	if _, err := e.ProcessTurn(context.Background(), session.ID, "I look around."); err != ErrSessionBusy {
		t.Errorf("Expected ErrSessionBusy, got %v", err)
	}

	if err := store.ReleaseTurnLock(context.Background(), session.ID, token); err != nil {
		t.Fatalf("ReleaseTurnLock failed: %v", err)
	}
}
