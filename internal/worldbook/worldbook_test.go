package worldbook

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	book := Default()

	if len(book.Courts) != 5 {
		t.Errorf("Expected 5 courts, got %d", len(book.Courts))
	}
	if len(book.Archetypes) != 4 {
		t.Errorf("Expected 4 archetypes, got %d", len(book.Archetypes))
	}
	if book.Opening == "" {
		t.Error("Expected an opening directive")
	}

	if !book.HasCourt("Night Court (mysterious)") {
		t.Error("Expected Night Court present")
	}
	if book.HasCourt("Winter Court") {
		t.Error("Expected unknown court absent")
	}
	if !book.HasArchetype("Wary Survivor") {
		t.Error("Expected Wary Survivor present")
	}
	if book.HasArchetype("Chosen One") {
		t.Error("Expected unknown archetype absent")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	content := `courts:
  - "River Court"
  - "Stone Court"
archetypes:
  - "Exiled Knight"
opening: "Open at the river crossing."
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Write fixture: %v", err)
	}

	book, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !book.HasCourt("River Court") || book.HasCourt("Night Court (mysterious)") {
		t.Errorf("Expected courts replaced, got %v", book.Courts)
	}
	if !book.HasArchetype("Exiled Knight") {
		t.Errorf("Expected archetypes replaced, got %v", book.Archetypes)
	}
	if book.Opening != "Open at the river crossing." {
		t.Errorf("Unexpected opening %q", book.Opening)
	}
	// Tone was not set in the file, so the defaults remain.
	if len(book.Tone) == 0 {
		t.Error("Expected default tone directives kept")
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	if err := os.WriteFile(path, []byte(`opening: "A different opening."`), 0o644); err != nil {
		t.Fatalf("Write fixture: %v", err)
	}

	book, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(book.Courts) != 5 || len(book.Archetypes) != 4 {
		t.Error("Expected default option sets kept for unset fields")
	}
	if book.Opening != "A different opening." {
		t.Errorf("Unexpected opening %q", book.Opening)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadEmptiedBookRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.yaml")
	if err := os.WriteFile(path, []byte("courts: []\narchetypes: []\nopening: \"\"\n"), 0o644); err != nil {
		t.Fatalf("Write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for a book emptied of required fields")
	}
}
