package actor

// Trust score bounds. Every trust update is clamped to this range.
const (
	TrustMin = -100
	TrustMax = 100
)

// DialogueEntry is one utterance in a character's dialogue memory.
type DialogueEntry struct {
	Speaker   string `json:"speaker"`
	Utterance string `json:"utterance"`
}

// Character is a non-player character or companion. Records are created only
// through the Registry and live for the whole session.
type Character struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Archetype   string          `json:"archetype,omitempty"`
	Traits      []string        `json:"traits,omitempty"`
	Location    string          `json:"location,omitempty"`
	Inventory   []string        `json:"inventory,omitempty"`
	Trust       int             `json:"trust"`
	Statuses    map[string]int  `json:"statuses,omitempty"` // status name -> remaining turns
	Following   bool            `json:"following,omitempty"`
	Dialogue    []DialogueEntry `json:"dialogue,omitempty"` // append-only, persists across conversations
}

// HasItem reports whether the character carries at least one of item.
func (c *Character) HasItem(item string) bool {
	for _, it := range c.Inventory {
		if it == item {
			return true
		}
	}
	return false
}

// clampTrust bounds a trust score to [TrustMin, TrustMax].
func clampTrust(trust int) int {
	if trust > TrustMax {
		return TrustMax
	}
	if trust < TrustMin {
		return TrustMin
	}
	return trust
}
