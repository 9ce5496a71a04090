package state

// Structured action request kinds. start_dialogue and end_dialogue are the
// only mode transitions; everything else is an intra-mode effect.
const (
	RequestStartDialogue      = "start_dialogue"
	RequestEndDialogue        = "end_dialogue"
	RequestUpdateState        = "update_state"
	RequestCreateCharacter    = "create_character"
	RequestExchangeItem       = "exchange_item"
	RequestUpdateRelationship = "update_relationship"
)

// Exchange directions for exchange_item.
const (
	DirectionToPartner = "to_partner"
	DirectionToPlayer  = "to_player"
)

type StartDialogueParams struct {
	CharacterID string `json:"character_id"`
}

type CreateCharacterParams struct {
	Archetype string `json:"archetype"`
	Location  string `json:"location,omitempty"` // defaults to the player location
	NameHint  string `json:"name_hint,omitempty"`
}

// UpdateStateParams carry partial world updates: absent fields are left
// untouched, never cleared.
type UpdateStateParams struct {
	Location        string            `json:"location,omitempty"`
	TimeOfDay       string            `json:"time_of_day,omitempty"`
	InventoryAdd    []string          `json:"player_inventory_add,omitempty"`
	InventoryRemove []string          `json:"player_inventory_remove,omitempty"`
	FlagsSet        map[string]string `json:"flags_set,omitempty"`
	FlagsClear      []string          `json:"flags_clear,omitempty"`
	AdvanceChapter  bool              `json:"advance_chapter,omitempty"`
}

type ExchangeItemParams struct {
	Direction string `json:"direction"`
	Item      string `json:"item"`
}

type UpdateRelationshipParams struct {
	TrustDelta  int            `json:"trust_delta,omitempty"`
	StatusSet   map[string]int `json:"status_set,omitempty"` // status -> duration in turns
	StatusClear []string       `json:"status_clear,omitempty"`
}
