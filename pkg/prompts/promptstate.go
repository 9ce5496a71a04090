package prompts

import (
	"sort"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// PromptState is the compact world view serialized into the system prompt.
// It carries only what the model needs this turn: the current location, who
// is present, and the player's situation. Absent characters are omitted so
// the model cannot address them.
type PromptState struct {
	Location        promptLocation    `json:"location"`
	TimeOfDay       string            `json:"time_of_day,omitempty"`
	PlayerInventory []string          `json:"player_inventory,omitempty"`
	Flags           map[string]string `json:"flags,omitempty"`
	Chapter         int               `json:"chapter"`
	StorySummary    string            `json:"story_summary,omitempty"`
	Present         []promptCharacter `json:"characters_present,omitempty"`
}

type promptLocation struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Exits       map[string]string `json:"exits,omitempty"`
}

type promptCharacter struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Attitude    string   `json:"attitude"`
	Statuses    []string `json:"statuses,omitempty"`
	Following   bool     `json:"following,omitempty"`
}

// ToPromptState projects the session state into the prompt snapshot.
func ToPromptState(w *state.WorldState, s *scenario.Scenario, registry *actor.Registry) PromptState {
	loc := s.Locations[w.Location]
	ps := PromptState{
		Location: promptLocation{
			ID:          w.Location,
			Name:        loc.Name,
			Description: loc.Description,
			Exits:       loc.Exits,
		},
		TimeOfDay:       w.TimeOfDay,
		PlayerInventory: w.Inventory,
		Flags:           w.Flags,
		Chapter:         w.Chapter,
		StorySummary:    w.Summary,
	}

	for _, c := range registry.All() {
		if c.Location != w.Location {
			continue
		}
		pc := promptCharacter{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Traits:      c.Traits,
			Attitude:    attitude(c.Trust),
			Following:   c.Following,
		}
		for status := range c.Statuses {
			pc.Statuses = append(pc.Statuses, status)
		}
		sort.Strings(pc.Statuses)
		ps.Present = append(ps.Present, pc)
	}
	return ps
}

// attitude buckets a trust score into a word the model can act on. Raw scores
// stay engine-side.
func attitude(trust int) string {
	switch {
	case trust >= 60:
		return "devoted"
	case trust >= 25:
		return "friendly"
	case trust > -25:
		return "neutral"
	case trust > -60:
		return "wary"
	default:
		return "hostile"
	}
}
