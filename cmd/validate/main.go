package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/narrative-engine/pkg/actor"
	"github.com/jwebster45206/narrative-engine/pkg/scenario"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <scenario.json> [more files...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &ScenarioValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid\n", filename)
	}
	if failed {
		os.Exit(1)
	}
}

type ScenarioValidator struct {
	errors []string
}

func (v *ScenarioValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("scenario file must have .json extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidID(nameWithoutExt) {
		return fmt.Errorf("scenario filename '%s' must be lowercase snake_case (e.g., my_scenario.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	var s scenario.Scenario
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if err := s.Validate(); err != nil {
		return fmt.Errorf("file %s: %w", filename, err)
	}

	v.validateScenario(&s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

// validateScenario applies the conventions Scenario.Validate does not cover:
// id formats, archetype references, and archetype draw bounds.
func (v *ScenarioValidator) validateScenario(s *scenario.Scenario) {
	for locationID := range s.Locations {
		v.validateIDFormat("location ID", locationID)
	}

	archetypes := s.ArchetypeConfig()
	for _, c := range s.Characters {
		if c.ID != "" {
			v.validateIDFormat("character ID", c.ID)
		}
		if c.Archetype != "" {
			if _, ok := archetypes[c.Archetype]; !ok {
				v.addError(fmt.Sprintf("character '%s' references unknown archetype '%s'", c.Name, c.Archetype))
			}
		}
	}

	for tag, a := range s.Archetypes {
		v.validateIDFormat("archetype tag", tag)
		v.validateArchetype(tag, a)
	}
}

func (v *ScenarioValidator) validateArchetype(tag string, a actor.Archetype) {
	if a.TraitCount > len(a.Traits) {
		v.addError(fmt.Sprintf("archetype '%s' draws %d traits from a pool of %d", tag, a.TraitCount, len(a.Traits)))
	}
	if a.MinItems > a.MaxItems {
		v.addError(fmt.Sprintf("archetype '%s' has min_items %d greater than max_items %d", tag, a.MinItems, a.MaxItems))
	}
	if a.MaxItems > len(a.Items) {
		v.addError(fmt.Sprintf("archetype '%s' draws up to %d items from a pool of %d", tag, a.MaxItems, len(a.Items)))
	}
	if a.InitialTrust < actor.TrustMin || a.InitialTrust > actor.TrustMax {
		v.addError(fmt.Sprintf("archetype '%s' initial_trust %d is outside [%d, %d]", tag, a.InitialTrust, actor.TrustMin, actor.TrustMax))
	}
}

func (v *ScenarioValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ScenarioValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}
