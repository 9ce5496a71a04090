package prompts

import (
	"github.com/jwebster45206/narrative-engine/pkg/chat"
	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// NarrativeTools are the structured actions offered in narrative mode.
func NarrativeTools() []chat.Tool {
	return []chat.Tool{
		{
			Name:        state.RequestStartDialogue,
			Description: "Begin a direct conversation with a character who is present at the player's location. Use this when the player addresses a character, instead of improvising their replies.",
			InputSchema: objectSchema(map[string]any{
				"character_id": map[string]any{
					"type":        "string",
					"description": "The id of the character to talk to, from characters_present.",
				},
			}, "character_id"),
		},
		updateStateTool(),
		{
			Name:        state.RequestCreateCharacter,
			Description: "Introduce a new character into the scene. The engine generates the details; refer to the character by the returned id afterward.",
			InputSchema: objectSchema(map[string]any{
				"archetype": map[string]any{
					"type":        "string",
					"description": "One of the scenario's archetypes, e.g. townsperson, companion, foe, love_interest.",
				},
				"location": map[string]any{
					"type":        "string",
					"description": "Where the character appears. Defaults to the player's location.",
				},
				"name_hint": map[string]any{
					"type":        "string",
					"description": "Optional name for the character when the story demands one.",
				},
			}, "archetype"),
		},
	}
}

// DialogueTools are the structured actions offered in dialogue mode.
func DialogueTools() []chat.Tool {
	return []chat.Tool{
		{
			Name:        state.RequestEndDialogue,
			Description: "End the current conversation and return to narration. Use when the exchange reaches a natural close or the player disengages.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        state.RequestExchangeItem,
			Description: "Move one item between the player and the dialogue partner. The exchange only happens if the giver actually holds the item.",
			InputSchema: objectSchema(map[string]any{
				"direction": map[string]any{
					"type": "string",
					"enum": []string{state.DirectionToPartner, state.DirectionToPlayer},
				},
				"item": map[string]any{
					"type":        "string",
					"description": "The item id being handed over.",
				},
			}, "direction", "item"),
		},
		{
			Name:        state.RequestUpdateRelationship,
			Description: "Record how this conversation changes the partner's disposition toward the player.",
			InputSchema: objectSchema(map[string]any{
				"trust_delta": map[string]any{
					"type":        "integer",
					"description": "Trust change, small for words, larger for deeds. Typical range -20 to 20.",
				},
				"status_set": map[string]any{
					"type":        "object",
					"description": "Temporary statuses to apply, mapping status name to duration in turns.",
				},
				"status_clear": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			}),
		},
		updateStateTool(),
	}
}

func updateStateTool() chat.Tool {
	return chat.Tool{
		Name:        state.RequestUpdateState,
		Description: "Record world changes your narration implies: movement, items gained or lost, time passing, story flags. Omitted fields are left unchanged.",
		InputSchema: objectSchema(map[string]any{
			"location": map[string]any{
				"type":        "string",
				"description": "The player's new location id. Must be an exit of the current location.",
			},
			"time_of_day": map[string]any{"type": "string"},
			"player_inventory_add": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"player_inventory_remove": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"flags_set": map[string]any{
				"type":        "object",
				"description": "Story flags to set, mapping flag name to value.",
			},
			"flags_clear": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"advance_chapter": map[string]any{"type": "boolean"},
		}),
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToolsForMode returns the toolset matching the session's interaction mode.
func ToolsForMode(m state.Mode) []chat.Tool {
	if m.IsDialogue() {
		return DialogueTools()
	}
	return NarrativeTools()
}
