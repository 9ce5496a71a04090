package state

import (
	"encoding/json"
	"fmt"
)

const (
	modeNarrative = "narrative"
	modeDialogue  = "dialogue"
)

// Mode is the tagged interaction mode: Narrative, or Dialogue with exactly
// one partner. The zero value is Narrative. Keeping the fields private makes
// the invalid combination (no dialogue, non-empty partner) unrepresentable.
type Mode struct {
	dialogue bool
	partner  string
}

// Narrative returns the free-narrative mode.
func Narrative() Mode {
	return Mode{}
}

// Dialogue returns the direct-dialogue mode with the given partner.
func Dialogue(partner string) Mode {
	return Mode{dialogue: true, partner: partner}
}

// IsDialogue reports whether dialogue mode is active.
func (m Mode) IsDialogue() bool {
	return m.dialogue
}

// Partner returns the active dialogue partner id, or false in narrative mode.
func (m Mode) Partner() (string, bool) {
	if !m.dialogue {
		return "", false
	}
	return m.partner, true
}

func (m Mode) String() string {
	if m.dialogue {
		return modeDialogue
	}
	return modeNarrative
}

type modeJSON struct {
	Kind    string `json:"kind"`
	Partner string `json:"partner,omitempty"`
}

func (m Mode) MarshalJSON() ([]byte, error) {
	out := modeJSON{Kind: m.String()}
	if m.dialogue {
		out.Partner = m.partner
	}
	return json.Marshal(out)
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var in modeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case modeNarrative, "":
		*m = Narrative()
	case modeDialogue:
		if in.Partner == "" {
			return fmt.Errorf("dialogue mode requires a partner")
		}
		*m = Dialogue(in.Partner)
	default:
		return fmt.Errorf("unknown mode %q", in.Kind)
	}
	return nil
}
