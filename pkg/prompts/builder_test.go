package prompts

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

func testSetup(t *testing.T) (*state.WorldState, *scenario.Scenario, *actor.Registry) {
	t.Helper()
	s := &scenario.Scenario{
		Name:  "Forest Test",
		Story: "A quiet forest hides an old secret.",
		Locations: map[string]scenario.Location{
			"forest_edge": {Name: "Forest Edge", Description: "Tall pines.", Exits: map[string]string{"north": "cave"}},
			"cave":        {Name: "Cave"},
		},
		OpeningLocation: "forest_edge",
	}
	w := state.NewWorldState(s)
	registry := actor.NewRegistry(nil, rand.New(rand.NewSource(1)))
	registry.Create(actor.CreateParams{ID: "varnas", Name: "Varnas", Location: "forest_edge"})
	registry.Create(actor.CreateParams{ID: "grum", Name: "Grum", Location: "cave"})
	return w, s, registry
}

func TestBuilder_Narrative(t *testing.T) {
	w, s, registry := testSetup(t)

	messages, err := New().
		WithWorld(w).
		WithScenario(s).
		WithRegistry(registry).
		WithHistory([]chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "I walk north."}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("Expected system + user message, got %d", len(messages))
	}
	if messages[0].Role != chat.ChatRoleSystem {
		t.Errorf("Expected system role first, got %s", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "narrator") {
		t.Error("Expected narrative framing in system prompt")
	}
	if !strings.Contains(messages[0].Content, "varnas") {
		t.Error("Expected present character in world snapshot")
	}
	if strings.Contains(messages[0].Content, "grum") {
		t.Error("Absent characters must not appear in the snapshot")
	}
	if messages[1].Content != "I walk north." {
		t.Errorf("Unexpected user message: %q", messages[1].Content)
	}
}

func TestBuilder_Dialogue(t *testing.T) {
	w, s, registry := testSetup(t)
	w.Mode = state.Dialogue("varnas")
	partner, _ := registry.Get("varnas")

	messages, err := New().
		WithWorld(w).
		WithScenario(s).
		WithRegistry(registry).
		WithPartner(partner).
		WithHistory([]chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "Hello there."}}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(messages[0].Content, "roleplaying Varnas") {
		t.Error("Expected dialogue framing with the partner name")
	}
}

func TestBuilder_RequiredFields(t *testing.T) {
	w, s, registry := testSetup(t)

	if _, err := New().WithScenario(s).WithRegistry(registry).Build(); err == nil {
		t.Error("Expected error without world state")
	}
	if _, err := New().WithWorld(w).WithRegistry(registry).Build(); err == nil {
		t.Error("Expected error without scenario")
	}
	if _, err := New().WithWorld(w).WithScenario(s).Build(); err == nil {
		t.Error("Expected error without registry")
	}
}

func TestBuilder_HistoryWindow(t *testing.T) {
	w, s, registry := testSetup(t)

	history := make([]chat.ChatMessage, 0, 30)
	for i := 0; i < 30; i++ {
		role := chat.ChatRoleUser
		if i%2 == 1 {
			role = chat.ChatRoleAgent
		}
		history = append(history, chat.ChatMessage{Role: role, Content: "turn"})
	}

	messages, err := New().
		WithWorld(w).
		WithScenario(s).
		WithRegistry(registry).
		WithHistory(history).
		WithHistoryLimit(10).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	// system + 10 windowed history entries
	if len(messages) != 11 {
		t.Errorf("Expected 11 messages, got %d", len(messages))
	}
}

func TestBuilder_HistoryWindowKeepsRequestPair(t *testing.T) {
	w, s, registry := testSetup(t)

	req := chat.NewActionRequest(state.RequestUpdateState, []byte(`{}`))
	history := []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "one"},
		{Role: chat.ChatRoleAgent, Content: "two", Request: req},
		{Role: chat.ChatRoleUser, Content: "(State updated.)", ResultFor: req.ID},
		{Role: chat.ChatRoleAgent, Content: "four"},
	}

	messages, err := New().
		WithWorld(w).
		WithScenario(s).
		WithRegistry(registry).
		WithHistory(history).
		WithHistoryLimit(2).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The 2-message window would open on the result; it must widen to keep
	// the request with it.
	if len(messages) != 4 {
		t.Fatalf("Expected system + 3 history messages, got %d", len(messages))
	}
	if messages[1].Request == nil {
		t.Error("Expected the request message retained at the window edge")
	}
}

func TestToolsForMode(t *testing.T) {
	narrative := ToolsForMode(state.Narrative())
	dialogue := ToolsForMode(state.Dialogue("varnas"))

	if !hasTool(narrative, state.RequestStartDialogue) {
		t.Error("Narrative toolset must offer start_dialogue")
	}
	if hasTool(narrative, state.RequestEndDialogue) {
		t.Error("Narrative toolset must not offer end_dialogue")
	}
	if !hasTool(dialogue, state.RequestEndDialogue) || !hasTool(dialogue, state.RequestExchangeItem) {
		t.Error("Dialogue toolset must offer end_dialogue and exchange_item")
	}
	if hasTool(dialogue, state.RequestStartDialogue) {
		t.Error("Dialogue toolset must not offer start_dialogue")
	}
	if !hasTool(narrative, state.RequestUpdateState) || !hasTool(dialogue, state.RequestUpdateState) {
		t.Error("update_state must be available in both modes")
	}
}

func hasTool(tools []chat.Tool, name string) bool {
	for _, tool := range tools {
		if tool.Name == name {
			return true
		}
	}
	return false
}

func TestSummarizationMessages(t *testing.T) {
	messages := SummarizationMessages("Varnas", []actor.DialogueEntry{
		{Speaker: "player", Utterance: "Where is the key?"},
		{Speaker: "varnas", Utterance: "In the cave, if you dare."},
	})
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if !strings.Contains(messages[1].Content, "In the cave") {
		t.Error("Expected dialogue transcript in the user message")
	}
}

func TestAttitude(t *testing.T) {
	cases := []struct {
		trust int
		want  string
	}{
		{100, "devoted"},
		{30, "friendly"},
		{0, "neutral"},
		{-30, "wary"},
		{-100, "hostile"},
	}
	for _, tc := range cases {
		if got := attitude(tc.trust); got != tc.want {
			t.Errorf("attitude(%d) = %q, want %q", tc.trust, got, tc.want)
		}
	}
}
