package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/chat"
)

// Session is the persistent record of one playthrough: world state, every
// character, and both conversation histories.
//
// The histories are disjoint by construction. NarrativeHistory holds
// narrator turns; DialogueHistory holds the active conversation and is reset
// when dialogue ends, after its content has been summarized into the world
// state. In both, a message carrying a request is immediately followed by its
// result message.
type Session struct {
	ID       uuid.UUID `json:"id"`
	Scenario string    `json:"scenario"` // scenario file name

	World      *WorldState        `json:"world"`
	Characters []*actor.Character `json:"characters,omitempty"`

	NarrativeHistory []chat.ChatMessage `json:"narrative_history,omitempty"`
	DialogueHistory  []chat.ChatMessage `json:"dialogue_history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session with a fresh id.
func NewSession(scenarioFile string, world *WorldState) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		Scenario:  scenarioFile,
		World:     world,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ActiveHistory returns the history for the current mode.
func (s *Session) ActiveHistory() []chat.ChatMessage {
	if s.World.Mode.IsDialogue() {
		return s.DialogueHistory
	}
	return s.NarrativeHistory
}

// AppendNarrative adds messages to the narrative history.
func (s *Session) AppendNarrative(messages ...chat.ChatMessage) {
	s.NarrativeHistory = append(s.NarrativeHistory, messages...)
}

// AppendDialogue adds messages to the active conversation transcript.
func (s *Session) AppendDialogue(messages ...chat.ChatMessage) {
	s.DialogueHistory = append(s.DialogueHistory, messages...)
}

// ResetDialogueHistory clears the conversation transcript on dialogue exit.
func (s *Session) ResetDialogueHistory() {
	s.DialogueHistory = nil
}
