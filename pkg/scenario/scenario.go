package scenario

import (
	"fmt"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
)

// Location is a place in the game world.
type Location struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Exits       map[string]string `json:"exits,omitempty"` // direction -> location key
}

// SeedCharacter is a character present when a session starts.
type SeedCharacter struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Archetype   string   `json:"archetype,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Location    string   `json:"location"`
	Inventory   []string `json:"inventory,omitempty"`
	Trust       int      `json:"trust,omitempty"`
	Following   bool     `json:"following,omitempty"`
}

// Scenario is the static template for a narrative session: the location
// catalog, the opening world state, seed characters, and any archetype
// overrides for generated characters.
type Scenario struct {
	Name             string                     `json:"name"`
	FileName         string                     `json:"file_name,omitempty"`
	Story            string                     `json:"story,omitempty"`
	Locations        map[string]Location        `json:"locations"`
	OpeningLocation  string                     `json:"opening_location"`
	OpeningInventory []string                   `json:"opening_inventory,omitempty"`
	OpeningTimeOfDay string                     `json:"opening_time_of_day,omitempty"`
	OpeningSummary   string                     `json:"opening_summary,omitempty"`
	Characters       []SeedCharacter            `json:"characters,omitempty"`
	Archetypes       map[string]actor.Archetype `json:"archetypes,omitempty"`
}

// HasLocation reports whether key names a location in the catalog.
func (s *Scenario) HasLocation(key string) bool {
	_, ok := s.Locations[key]
	return ok
}

// ArchetypeConfig returns the archetype map for this scenario: the built-in
// defaults overlaid with any scenario-specific entries.
func (s *Scenario) ArchetypeConfig() map[string]actor.Archetype {
	cfg := actor.DefaultArchetypes()
	for tag, a := range s.Archetypes {
		cfg[tag] = a
	}
	return cfg
}

// Validate checks internal consistency before a session is created from the
// scenario.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	if len(s.Locations) == 0 {
		return fmt.Errorf("scenario %q has no locations", s.Name)
	}
	if !s.HasLocation(s.OpeningLocation) {
		return fmt.Errorf("opening location %q is not in the location catalog", s.OpeningLocation)
	}
	for _, c := range s.Characters {
		if c.Name == "" {
			return fmt.Errorf("seed character without a name")
		}
		if !s.HasLocation(c.Location) {
			return fmt.Errorf("seed character %q placed at unknown location %q", c.Name, c.Location)
		}
	}
	for key, loc := range s.Locations {
		for dir, dest := range loc.Exits {
			if !s.HasLocation(dest) {
				return fmt.Errorf("location %q exit %q leads to unknown location %q", key, dir, dest)
			}
		}
	}
	return nil
}
