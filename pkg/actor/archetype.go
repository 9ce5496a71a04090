package actor

// Archetype is a named template governing randomized character generation:
// which traits and items may be drawn, how many, the starting trust score,
// and the naming rule.
type Archetype struct {
	Traits       []string `json:"traits,omitempty"`
	Items        []string `json:"items,omitempty"`
	NamePrefixes []string `json:"name_prefixes,omitempty"`
	TraitCount   int      `json:"trait_count"`
	MinItems     int      `json:"min_items"`
	MaxItems     int      `json:"max_items"`
	InitialTrust int      `json:"initial_trust"`
}

// DefaultArchetypes returns the built-in archetype configuration. Scenarios
// may override or extend this map.
func DefaultArchetypes() map[string]Archetype {
	return map[string]Archetype{
		"townsperson": {
			Traits:       []string{"friendly", "suspicious", "busy", "curious", "weary", "helpful", "reserved"},
			Items:        []string{"apple", "bread", "hammer", "cloth", "coin", "empty bottle", "wooden bowl"},
			NamePrefixes: []string{"Farmer", "Miller", "Baker", "Guard", "Innkeeper", "Merchant"},
			TraitCount:   3,
			MinItems:     1,
			MaxItems:     4,
			InitialTrust: 0,
		},
		"companion": {
			Traits:       []string{"loyal", "skeptic", "brave", "resourceful", "cautious", "optimistic", "pragmatic"},
			Items:        []string{"short sword", "healing potion", "rope", "waterskin", "bedroll", "dried meat"},
			TraitCount:   3,
			MinItems:     2,
			MaxItems:     5,
			InitialTrust: 20,
		},
		"foe": {
			Traits:       []string{"aggressive", "cunning", "greedy", "ruthless", "cowardly", "territorial"},
			Items:        []string{"rusty dagger", "crude club", "tattered rags", "stolen coin"},
			TraitCount:   2,
			MinItems:     1,
			MaxItems:     3,
			InitialTrust: -50,
		},
		"love_interest": {
			Traits:       []string{"charming", "shy", "witty", "kind", "mysterious", "adventurous"},
			Items:        []string{"flower", "book", "locket", "perfume", "small gift"},
			TraitCount:   3,
			MinItems:     1,
			MaxItems:     2,
			InitialTrust: 10,
		},
	}
}
