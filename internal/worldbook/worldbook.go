// Package worldbook holds the fixed narrative option sets and directives for
// character creation and the opening scene. A book can be loaded from a YAML
// file; missing fields fall back to the built-in defaults.
package worldbook

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Book defines the enumerated character options and scene directives.
type Book struct {
	Courts     []string `yaml:"courts"`
	Archetypes []string `yaml:"archetypes"`
	Opening    string   `yaml:"opening"`
	Tone       []string `yaml:"tone"`
}

// Default returns the built-in book.
func Default() *Book {
	return &Book{
		Courts: []string{
			"Night Court (mysterious)",
			"Dawn Court (stately)",
			"Spring Court (warmth)",
			"Autumn Court (wary)",
			"Independent / None",
		},
		Archetypes: []string{
			"Wary Survivor",
			"Scholarly Heir",
			"Ambitious Outsider",
			"Reckless Champion",
		},
		Opening: "Begin the adventure with a twilight border scene: the protagonist " +
			"approaches a glittering fae court border. Provide narrative and 3 choices.",
		Tone: []string{
			"Write evocative, novel-style narrative in the voice of lush romantic fantasy.",
			"Keep scenes appropriate for a mid-tier powerful protagonist, not an invincible god.",
		},
	}
}

// Load reads a book from a YAML file. Fields left empty in the file keep the
// default values.
func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worldbook: %w", err)
	}

	book := Default()
	if err := yaml.Unmarshal(data, book); err != nil {
		return nil, fmt.Errorf("parse worldbook: %w", err)
	}

	if len(book.Courts) == 0 || len(book.Archetypes) == 0 || book.Opening == "" {
		return nil, fmt.Errorf("worldbook %s is missing courts, archetypes, or opening", path)
	}

	return book, nil
}

// HasCourt reports whether name is one of the book's courts.
func (b *Book) HasCourt(name string) bool {
	return contains(b.Courts, name)
}

// HasArchetype reports whether name is one of the book's archetypes.
func (b *Book) HasArchetype(name string) bool {
	return contains(b.Archetypes, name)
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
