package state

import (
	"slices"

	"github.com/jwebster45206/narrative-engine/pkg/scenario"
)

// WorldState is the mutable record of a running session. There is exactly one
// instance per session; it is mutated only by the Processor and lives until
// the session ends.
type WorldState struct {
	Location  string            `json:"location"`
	Inventory []string          `json:"inventory,omitempty"`
	TimeOfDay string            `json:"time_of_day,omitempty"`
	Flags     map[string]string `json:"flags,omitempty"`
	Chapter   int               `json:"chapter"`
	Summary   string            `json:"summary,omitempty"`
	Mode      Mode              `json:"mode"`
	LastInput string            `json:"last_input,omitempty"`
}

// NewWorldState builds the opening world state for a scenario.
func NewWorldState(s *scenario.Scenario) *WorldState {
	return &WorldState{
		Location:  s.OpeningLocation,
		Inventory: append([]string(nil), s.OpeningInventory...),
		TimeOfDay: s.OpeningTimeOfDay,
		Flags:     make(map[string]string),
		Chapter:   1,
		Summary:   s.OpeningSummary,
		Mode:      Narrative(),
	}
}

// HasItem reports whether the player carries item.
func (w *WorldState) HasItem(item string) bool {
	return slices.Contains(w.Inventory, item)
}

// AddItem adds item to the player inventory. The inventory is a set;
// duplicates are ignored.
func (w *WorldState) AddItem(item string) {
	if !w.HasItem(item) {
		w.Inventory = append(w.Inventory, item)
	}
}

// RemoveItem removes item from the player inventory, reporting whether it
// was present.
func (w *WorldState) RemoveItem(item string) bool {
	for i, it := range w.Inventory {
		if it == item {
			w.Inventory = append(w.Inventory[:i], w.Inventory[i+1:]...)
			return true
		}
	}
	return false
}

// AppendSummary extends the rolling narrative summary.
func (w *WorldState) AppendSummary(text string) {
	if text == "" {
		return
	}
	if w.Summary == "" {
		w.Summary = text
		return
	}
	w.Summary += "\n\n" + text
}
