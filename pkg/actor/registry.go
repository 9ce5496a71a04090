package actor

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrDuplicateID      = errors.New("character id already exists")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrUnknownArchetype = errors.New("unknown archetype")
	ErrItemNotFound     = errors.New("item not found")
)

// Registry owns every character record in a session. All mutation goes
// through registry methods so invariants (trust clamping, status expiry,
// existence checks before side effects) hold in one place.
type Registry struct {
	characters map[string]*Character
	archetypes map[string]Archetype
	rng        *rand.Rand
}

// NewRegistry creates an empty registry. The rng drives character
// generation and is injected so tests can seed it.
func NewRegistry(archetypes map[string]Archetype, rng *rand.Rand) *Registry {
	if archetypes == nil {
		archetypes = DefaultArchetypes()
	}
	return &Registry{
		characters: make(map[string]*Character),
		archetypes: archetypes,
		rng:        rng,
	}
}

// CreateParams are the explicit inputs to Create. ID is optional; when empty
// an id is derived from the name and archetype.
type CreateParams struct {
	ID           string
	Name         string
	Description  string
	Archetype    string
	Location     string
	Traits       []string
	Inventory    []string
	InitialTrust int
	Following    bool
}

// Create inserts a new character record. It fails with ErrDuplicateID when an
// explicit id is already registered; derived ids are disambiguated instead.
func (r *Registry) Create(p CreateParams) (*Character, error) {
	id := p.ID
	if id == "" {
		id = r.deriveID(p.Name, p.Archetype)
	} else if _, exists := r.characters[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	c := &Character{
		ID:          id,
		Name:        p.Name,
		Description: p.Description,
		Archetype:   p.Archetype,
		Traits:      append([]string(nil), p.Traits...),
		Location:    p.Location,
		Inventory:   append([]string(nil), p.Inventory...),
		Trust:       clampTrust(p.InitialTrust),
		Statuses:    make(map[string]int),
		Following:   p.Following,
		Dialogue:    make([]DialogueEntry, 0),
	}
	r.characters[id] = c
	return c, nil
}

// nameSeeds are fallback given-name fragments for generated characters.
var nameSeeds = []string{
	"Alda", "Bren", "Cale", "Dara", "Edri", "Fenn", "Goran", "Hale",
	"Isa", "Joren", "Kessa", "Lom", "Mira", "Nold", "Orin", "Petra",
	"Quill", "Rasa", "Soren", "Tam", "Una", "Vintra", "Wren", "Yara",
}

// Generate draws a randomized character from an archetype configuration and
// registers it. The name hint, when given, overrides the naming rule.
func (r *Registry) Generate(archetype, location, nameHint string) (*Character, error) {
	cfg, ok := r.archetypes[archetype]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArchetype, archetype)
	}

	name := nameHint
	if name == "" {
		prefix := cases.Title(language.English).String(archetype)
		if len(cfg.NamePrefixes) > 0 {
			prefix = cfg.NamePrefixes[r.rng.Intn(len(cfg.NamePrefixes))]
		}
		name = prefix + " " + nameSeeds[r.rng.Intn(len(nameSeeds))]
	}

	traits := drawSubset(r.rng, cfg.Traits, cfg.TraitCount)
	itemCount := cfg.MinItems
	if cfg.MaxItems > cfg.MinItems {
		itemCount += r.rng.Intn(cfg.MaxItems - cfg.MinItems + 1)
	}
	items := drawSubset(r.rng, cfg.Items, itemCount)

	desc := fmt.Sprintf("A %s named %s.", archetype, name)
	if len(traits) > 0 {
		desc += " They appear " + strings.Join(traits, ", ") + "."
	}

	return r.Create(CreateParams{
		Name:         name,
		Description:  desc,
		Archetype:    archetype,
		Location:     location,
		Traits:       traits,
		Inventory:    items,
		InitialTrust: cfg.InitialTrust,
	})
}

// drawSubset picks up to n distinct entries from pool in random order.
func drawSubset(rng *rand.Rand, pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	perm := rng.Perm(len(pool))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, pool[i])
	}
	return out
}

// deriveID builds a unique snake_case id from name and archetype.
func (r *Registry) deriveID(name, archetype string) string {
	base := toSnakeCase(name)
	if base == "" {
		base = toSnakeCase(archetype)
	}
	if base == "" {
		base = "char"
	}
	if _, exists := r.characters[base]; !exists {
		return base
	}
	if archetype != "" {
		withArch := base + "_" + toSnakeCase(archetype)
		if _, exists := r.characters[withArch]; !exists {
			return withArch
		}
		base = withArch
	}
	for i := 2; ; i++ {
		id := fmt.Sprintf("%s_%d", base, i)
		if _, exists := r.characters[id]; !exists {
			return id
		}
	}
}

// Get returns the record for id. Callers must route mutations through
// registry methods.
func (r *Registry) Get(id string) (*Character, error) {
	c, ok := r.characters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	return c, nil
}

// All returns every record ordered by id.
func (r *Registry) All() []*Character {
	out := make([]*Character, 0, len(r.characters))
	for _, c := range r.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered characters.
func (r *Registry) Len() int {
	return len(r.characters)
}

func (r *Registry) SetLocation(id, location string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.Location = location
	return nil
}

func (r *Registry) AddItem(id, item string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.Inventory = append(c.Inventory, item)
	return nil
}

// RemoveItem removes one instance of item. The inventory is untouched when
// the item is absent.
func (r *Registry) RemoveItem(id, item string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	for i, it := range c.Inventory {
		if it == item {
			c.Inventory = append(c.Inventory[:i], c.Inventory[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no %q", ErrItemNotFound, id, item)
}

func (r *Registry) HasItem(id, item string) (bool, error) {
	c, err := r.Get(id)
	if err != nil {
		return false, err
	}
	return c.HasItem(item), nil
}

// UpdateTrust applies delta to the character's trust score, clamped to
// [TrustMin, TrustMax], and returns the new value.
func (r *Registry) UpdateTrust(id string, delta int) (int, error) {
	c, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	c.Trust = clampTrust(c.Trust + delta)
	return c.Trust, nil
}

// SetStatus sets a temporary status with a remaining duration in turns.
// A non-positive duration removes the status instead.
func (r *Registry) SetStatus(id, status string, duration int) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	if duration <= 0 {
		delete(c.Statuses, status)
		return nil
	}
	if c.Statuses == nil {
		c.Statuses = make(map[string]int)
	}
	c.Statuses[status] = duration
	return nil
}

func (r *Registry) RemoveStatus(id, status string) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	delete(c.Statuses, status)
	return nil
}

// DecrementStatuses reduces every active status duration by one and removes
// any that reach zero, returning the removed status names.
func (r *Registry) DecrementStatuses(id string) ([]string, error) {
	c, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	var removed []string
	for name, remaining := range c.Statuses {
		remaining--
		if remaining <= 0 {
			delete(c.Statuses, name)
			removed = append(removed, name)
			continue
		}
		c.Statuses[name] = remaining
	}
	sort.Strings(removed)
	return removed, nil
}

func (r *Registry) SetFollowing(id string, following bool) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.Following = following
	return nil
}

// AddDialogue appends an utterance to the character's dialogue memory.
func (r *Registry) AddDialogue(id string, entry DialogueEntry) error {
	c, err := r.Get(id)
	if err != nil {
		return err
	}
	c.Dialogue = append(c.Dialogue, entry)
	return nil
}

// Snapshot returns the registry contents for persistence.
func (r *Registry) Snapshot() []*Character {
	return r.All()
}

// Restore replaces the registry contents from a persisted snapshot.
func (r *Registry) Restore(characters []*Character) {
	r.characters = make(map[string]*Character, len(characters))
	for _, c := range characters {
		if c.Statuses == nil {
			c.Statuses = make(map[string]int)
		}
		c.Trust = clampTrust(c.Trust)
		r.characters[c.ID] = c
	}
}

// toSnakeCase converts a display string to lower snake_case.
func toSnakeCase(s string) string {
	var out strings.Builder
	prevUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			out.WriteRune(r)
			prevUnderscore = false
		case r == ' ' || r == '-' || r == '.' || r == '_' || r == '\'':
			if !prevUnderscore {
				out.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(out.String(), "_")
}
