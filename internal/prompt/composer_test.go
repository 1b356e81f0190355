package prompt

import (
	"strings"
	"testing"

	"github.com/maraval/faeweave/internal/character"
	"github.com/maraval/faeweave/internal/story"
)

func testState() *character.State {
	return &character.State{
		Name:         "Aryn",
		Court:        "Night Court (mysterious)",
		Archetype:    "Wary Survivor",
		Strength:     5,
		Guile:        6,
		Magic:        3,
		HP:           10,
		Relationship: map[string]int{},
		Inventory:    []string{},
	}
}

// TestComposeEmptyHistory tests the prompt before any scene exists.
func TestComposeEmptyHistory(t *testing.T) {
	c := NewComposer(nil)
	p := c.Compose(testState(), nil, "begin", KindFreeText)

	if p.System == "" {
		t.Fatal("Empty system prompt")
	}
	if !strings.Contains(p.User, "None yet.") {
		t.Error("Expected 'None yet.' placeholder for empty history")
	}
	if !strings.Contains(p.User, `"name":"Aryn"`) {
		t.Error("Expected serialized character state in user prompt")
	}
	if !strings.Contains(p.User, "begin") {
		t.Error("Expected player input echoed in user prompt")
	}
}

// TestComposeHistoryWindow tests the rendered window lines.
func TestComposeHistoryWindow(t *testing.T) {
	window := []story.Entry{
		{SceneID: "s1", Narrative: "The border shimmers.", ChoiceTaken: ""},
		{SceneID: "s2", Narrative: "A sentry appears.", ChoiceTaken: "Approach"},
	}

	c := NewComposer(nil)
	p := c.Compose(testState(), window, "Speak", KindChoice)

	if !strings.Contains(p.User, "1. Scene: The border shimmers.") {
		t.Error("Expected first history line")
	}
	if !strings.Contains(p.User, "2. Scene: A sentry appears.") {
		t.Error("Expected second history line")
	}
	if !strings.Contains(p.User, "Choice: Approach") {
		t.Error("Expected choice rendered with its scene")
	}
}

// TestComposeKindHint tests the choice-vs-free-text framing.
func TestComposeKindHint(t *testing.T) {
	c := NewComposer(nil)

	choice := c.Compose(testState(), nil, "Fight", KindChoice)
	if !strings.Contains(choice.User, "selected this from the offered choices") {
		t.Error("Expected choice framing")
	}

	free := c.Compose(testState(), nil, "climb the wall", KindFreeText)
	if !strings.Contains(free.User, "free-text custom action") {
		t.Error("Expected free-text framing")
	}

	// Both player kinds carry the branch-matching instruction.
	for _, p := range []Prompt{choice, free} {
		if !strings.Contains(p.User, "continue that branch") {
			t.Error("Expected branch-matching instruction")
		}
	}

	directive := c.Compose(testState(), nil, "Begin at the border.", KindDirective)
	if !strings.Contains(directive.User, "Directive:") {
		t.Error("Expected directive framing")
	}
	if strings.Contains(directive.User, "continue that branch") {
		t.Error("Expected no branch-matching instruction for directives")
	}
}

// TestComposeExcerpt tests that long narratives are truncated in the window.
func TestComposeExcerpt(t *testing.T) {
	long := strings.Repeat("a very long sentence ", 50)
	window := []story.Entry{{SceneID: "s1", Narrative: long, ChoiceTaken: "x"}}

	c := NewComposer(nil)
	p := c.Compose(testState(), window, "next", KindFreeText)

	if strings.Contains(p.User, long) {
		t.Error("Expected narrative to be excerpted, got the full text")
	}
	if !strings.Contains(p.User, "…") {
		t.Error("Expected truncation marker")
	}
}

// TestComposeForbidsMetaText tests that the system directives forbid echoing
// system or meta text.
func TestComposeForbidsMetaText(t *testing.T) {
	c := NewComposer(nil)
	p := c.Compose(testState(), nil, "begin", KindFreeText)

	if !strings.Contains(p.System, "DO NOT reference your system role") {
		t.Error("Expected meta-text prohibition in system directives")
	}
	if !strings.Contains(p.System, "valid JSON") {
		t.Error("Expected strict output schema requirement")
	}
}
