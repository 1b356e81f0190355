package character

import (
	"fmt"

	"github.com/maraval/faeweave/internal/worldbook"
)

// Stat bounds for character creation.
const (
	MinStat    = 1
	MaxStat    = 10
	MinMagic   = 0
	StartingHP = 10
)

// State is the player character: the typed core attributes plus an open
// mapping for anything the backend introduces mid-story. It is mutated only
// through Apply, which always returns a fresh snapshot.
type State struct {
	Name      string `json:"name"`
	Court     string `json:"court"`
	Archetype string `json:"archetype"`

	Strength int `json:"strength"`
	Guile    int `json:"guile"`
	Magic    int `json:"magic"`

	// HP has no floor at the model level; clamping is a policy decision.
	HP int `json:"hp"`

	Relationship map[string]int `json:"relationship"`
	Inventory    []string       `json:"inventory"`

	// Attributes holds backend-introduced keys outside the typed fields.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CreationInput is the character creation form.
type CreationInput struct {
	Name      string `json:"name"`
	Court     string `json:"court"`
	Archetype string `json:"archetype"`
	Strength  int    `json:"strength"`
	Guile     int    `json:"guile"`
	Magic     int    `json:"magic"`
}

// New builds the initial character state from a creation input, validating
// the enumerated options against the worldbook and the stats against their
// creation bounds.
func New(in CreationInput, book *worldbook.Book) (*State, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("character name is required")
	}
	if !book.HasCourt(in.Court) {
		return nil, fmt.Errorf("unknown court: %q", in.Court)
	}
	if !book.HasArchetype(in.Archetype) {
		return nil, fmt.Errorf("unknown archetype: %q", in.Archetype)
	}
	if in.Strength < MinStat || in.Strength > MaxStat {
		return nil, fmt.Errorf("strength must be %d-%d", MinStat, MaxStat)
	}
	if in.Guile < MinStat || in.Guile > MaxStat {
		return nil, fmt.Errorf("guile must be %d-%d", MinStat, MaxStat)
	}
	if in.Magic < MinMagic || in.Magic > MaxStat {
		return nil, fmt.Errorf("magic must be %d-%d", MinMagic, MaxStat)
	}

	return &State{
		Name:         in.Name,
		Court:        in.Court,
		Archetype:    in.Archetype,
		Strength:     in.Strength,
		Guile:        in.Guile,
		Magic:        in.Magic,
		HP:           StartingHP,
		Relationship: make(map[string]int),
		Inventory:    make([]string, 0),
	}, nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := *s

	out.Relationship = make(map[string]int, len(s.Relationship))
	for k, v := range s.Relationship {
		out.Relationship[k] = v
	}

	out.Inventory = make([]string, len(s.Inventory))
	copy(out.Inventory, s.Inventory)

	if s.Attributes != nil {
		out.Attributes = make(map[string]any, len(s.Attributes))
		for k, v := range s.Attributes {
			out.Attributes[k] = v
		}
	}

	return &out
}
