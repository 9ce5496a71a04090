package state

import (
	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
)

// LocationIndex answers presence questions by comparing character locations
// against a target, and owns the follow propagation rule. Presence is a lazy
// O(n) scan over the registry; character counts are small by design.
type LocationIndex struct {
	registry *actor.Registry
	scenario *scenario.Scenario
}

// NewLocationIndex creates an index over the registry, validating location
// ids against the scenario's catalog.
func NewLocationIndex(registry *actor.Registry, s *scenario.Scenario) *LocationIndex {
	return &LocationIndex{registry: registry, scenario: s}
}

// KnownLocation reports whether location is in the scenario catalog.
func (li *LocationIndex) KnownLocation(location string) bool {
	return li.scenario.HasLocation(location)
}

// PresentAt returns the ids of every character whose location equals
// location, ordered by id.
func (li *LocationIndex) PresentAt(location string) []string {
	var ids []string
	for _, c := range li.registry.All() {
		if c.Location == location {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// IsPresent reports whether the character is at location. Unknown characters
// propagate the registry error.
func (li *LocationIndex) IsPresent(characterID, location string) (bool, error) {
	c, err := li.registry.Get(characterID)
	if err != nil {
		return false, err
	}
	return c.Location == location, nil
}

// PropagateFollow moves every following character to the player's new
// location and returns the moved ids. It must run strictly after the player
// location has been committed to newLocation, or followers would compute
// presence against the stale value.
func (li *LocationIndex) PropagateFollow(newLocation string) []string {
	var moved []string
	for _, c := range li.registry.All() {
		if c.Following && c.Location != newLocation {
			c.Location = newLocation
			moved = append(moved, c.ID)
		}
	}
	return moved
}
