package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// Builder constructs chat messages for a generative call using a fluent
// interface. It owns prompt assembly; session state management stays with
// the engine.
type Builder struct {
	world        *state.WorldState
	scenario     *scenario.Scenario
	registry     *actor.Registry
	partner      *actor.Character
	outcomeHint  string
	history      []chat.ChatMessage
	historyLimit int
	messages     []chat.ChatMessage
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: 20, // default history window
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithWorld sets the session world state.
func (b *Builder) WithWorld(w *state.WorldState) *Builder {
	b.world = w
	return b
}

// WithScenario sets the scenario definition.
func (b *Builder) WithScenario(s *scenario.Scenario) *Builder {
	b.scenario = s
	return b
}

// WithRegistry sets the character registry used for the presence snapshot.
func (b *Builder) WithRegistry(r *actor.Registry) *Builder {
	b.registry = r
	return b
}

// WithPartner switches the builder into dialogue framing for the given
// character.
func (b *Builder) WithPartner(c *actor.Character) *Builder {
	b.partner = c
	return b
}

// WithOutcomeHint injects the resolved outcome of the player's attempt, built
// with OutcomeSuccessTemplate or OutcomeFailureTemplate.
func (b *Builder) WithOutcomeHint(hint string) *Builder {
	b.outcomeHint = hint
	return b
}

// WithHistory sets the conversation history to window into the prompt.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithHistoryLimit sets the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build assembles the final message array.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.world == nil {
		return nil, fmt.Errorf("world state is required")
	}
	if b.scenario == nil {
		return nil, fmt.Errorf("scenario is required")
	}
	if b.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	b.messages = make([]chat.ChatMessage, 0)

	if err := b.addSystemPrompt(); err != nil {
		return nil, fmt.Errorf("error building system prompt: %w", err)
	}
	b.addHistory()
	b.addOutcomeHint()

	return b.messages, nil
}

// addSystemPrompt builds the system prompt: role framing plus the world
// snapshot.
func (b *Builder) addSystemPrompt() error {
	var sb strings.Builder

	if b.partner != nil {
		desc, err := json.Marshal(b.partner)
		if err != nil {
			return fmt.Errorf("error marshaling partner: %w", err)
		}
		sb.WriteString(fmt.Sprintf(DialogueSystemPrompt, b.partner.Name, desc, b.partner.Name))
	} else {
		sb.WriteString(NarrativeSystemPrompt)
	}

	ps := ToPromptState(b.world, b.scenario, b.registry)
	snapshot, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("error marshaling world snapshot: %w", err)
	}
	sb.WriteString("\n\n" + fmt.Sprintf(StatePromptTemplate, b.scenario.Story, snapshot))

	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: sb.String(),
	})
	return nil
}

// addHistory adds the windowed conversation history. The window never splits
// a request/result pair: when the cut lands on a result message, it widens by
// one to keep the pair intact.
func (b *Builder) addHistory() {
	if len(b.history) == 0 {
		return
	}
	start := 0
	if len(b.history) > b.historyLimit {
		start = len(b.history) - b.historyLimit
		if b.history[start].ResultFor != "" && start > 0 {
			start--
		}
	}
	b.messages = append(b.messages, b.history[start:]...)
}

func (b *Builder) addOutcomeHint() {
	if b.outcomeHint == "" {
		return
	}
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: b.outcomeHint,
	})
}

// SummarizationMessages builds the message array for condensing a finished
// conversation.
func SummarizationMessages(partnerName string, entries []actor.DialogueEntry) []chat.ChatMessage {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.Speaker)
		sb.WriteString(": ")
		sb.WriteString(e.Utterance)
		sb.WriteString("\n")
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: SummarizationPrompt},
		{Role: chat.ChatRoleUser, Content: fmt.Sprintf("Conversation with %s:\n%s", partnerName, sb.String())},
	}
}

// AssessmentMessages builds the message array for the gamemaster odds rating.
func AssessmentMessages(w *state.WorldState, s *scenario.Scenario, registry *actor.Registry, input string) ([]chat.ChatMessage, error) {
	ps := ToPromptState(w, s, registry)
	snapshot, err := json.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("error marshaling world snapshot: %w", err)
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: AssessorSystemPrompt},
		{Role: chat.ChatRoleUser, Content: fmt.Sprintf("World State:\n```json\n%s\n```\n\nPlayer action: %s", snapshot, input)},
	}, nil
}

// PlaceholderMessages builds the message array for an image placeholder.
func PlaceholderMessages(sceneText string) []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: PlaceholderSystemPrompt},
		{Role: chat.ChatRoleUser, Content: sceneText},
	}
}
