package chat

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator or dialogue partner
	ChatRoleSystem = "system"    // System instructions
)

// Stop reasons reported by the generative backend. StopReasonToolUse is the
// sole signal that a structured action request is attached to the response.
const (
	StopReasonEndTurn = "end_turn"
	StopReasonToolUse = "tool_use"
)

// ChatMessage is a single entry in a conversation history. Entries carrying a
// Request must be immediately followed by an entry whose ResultFor matches the
// request id; the engine owns that pairing.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// Request is set on assistant messages that ended with a structured
	// action request.
	Request *ActionRequest `json:"request,omitempty"`

	// ResultFor marks this message as the recorded result of an earlier
	// action request, identified by its id.
	ResultFor string `json:"result_for,omitempty"`
}

// ActionRequest is a structured instruction emitted by a content generator,
// asking the engine to mutate game state. It is ephemeral: consumed by the
// response processor in the same turn it was produced.
type ActionRequest struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// NewActionRequest builds a request with a fresh id.
func NewActionRequest(name string, input json.RawMessage) *ActionRequest {
	return &ActionRequest{
		ID:    uuid.NewString(),
		Name:  name,
		Input: input,
	}
}

// GenerateResult is what a single generative call produces: text, the stop
// reason, and at most one structured action request.
type GenerateResult struct {
	Text       string         `json:"text"`
	StopReason string         `json:"stop_reason"`
	Request    *ActionRequest `json:"request,omitempty"`
}

// Tool describes one structured action the model may request, in the shape
// the messages API expects.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// TurnRequest is a player turn submitted to the engine.
type TurnRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Input     string    `json:"input"`
}

func (tr *TurnRequest) Validate() error {
	if tr.Input == "" {
		return fmt.Errorf("input cannot be empty")
	}
	return nil
}

// TurnResponse is the rendered outcome of one processed turn.
type TurnResponse struct {
	SessionID    uuid.UUID `json:"session_id,omitempty"`
	Text         string    `json:"text,omitempty"`
	Placeholders string    `json:"placeholders,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	Partner      string    `json:"partner,omitempty"`
}
