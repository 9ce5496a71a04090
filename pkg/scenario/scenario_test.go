package scenario

import (
	"encoding/json"
	"testing"
)

func validScenario() *Scenario {
	return &Scenario{
		Name: "Test Forest",
		Locations: map[string]Location{
			"forest_edge": {Name: "Forest Edge", Exits: map[string]string{"north": "cave"}},
			"cave":        {Name: "Cave"},
		},
		OpeningLocation: "forest_edge",
		Characters: []SeedCharacter{
			{ID: "varnas", Name: "Varnas", Location: "forest_edge"},
		},
	}
}

func TestScenario_Validate(t *testing.T) {
	if err := validScenario().Validate(); err != nil {
		t.Fatalf("Expected valid scenario, got %v", err)
	}

	s := validScenario()
	s.OpeningLocation = "swamp"
	if err := s.Validate(); err == nil {
		t.Error("Expected error for unknown opening location")
	}

	s = validScenario()
	s.Characters[0].Location = "swamp"
	if err := s.Validate(); err == nil {
		t.Error("Expected error for seed character at unknown location")
	}

	s = validScenario()
	s.Locations["forest_edge"] = Location{Name: "Forest Edge", Exits: map[string]string{"north": "nowhere"}}
	if err := s.Validate(); err == nil {
		t.Error("Expected error for exit to unknown location")
	}

	s = validScenario()
	s.Locations = nil
	if err := s.Validate(); err == nil {
		t.Error("Expected error for scenario without locations")
	}
}

func TestScenario_ArchetypeOverride(t *testing.T) {
	data := `{
		"name": "Override Test",
		"locations": {"town": {"name": "Town"}},
		"opening_location": "town",
		"archetypes": {
			"townsperson": {
				"traits": ["dour"],
				"items": ["turnip"],
				"trait_count": 1,
				"min_items": 1,
				"max_items": 1,
				"initial_trust": -10
			}
		}
	}`

	var s Scenario
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	cfg := s.ArchetypeConfig()
	if cfg["townsperson"].InitialTrust != -10 {
		t.Errorf("Expected override trust -10, got %d", cfg["townsperson"].InitialTrust)
	}
	if _, ok := cfg["companion"]; !ok {
		t.Error("Expected default archetypes to survive the overlay")
	}
}
