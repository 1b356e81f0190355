// Package prompt builds the instruction payload sent to the generative
// backend from the character state, the trailing history window, and the
// player's input. Composition is a pure function of its inputs.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maraval/faeweave/internal/character"
	"github.com/maraval/faeweave/internal/story"
	"github.com/maraval/faeweave/internal/worldbook"
)

// HistoryWindow is how many trailing ledger entries are rendered into the
// prompt, most-recent-last.
const HistoryWindow = 6

// excerptLen caps how much of a past scene's narrative is echoed back.
const excerptLen = 280

// InputKind distinguishes a selected listed choice from a free-text action.
type InputKind int

const (
	KindChoice InputKind = iota
	KindFreeText

	// KindDirective marks engine-issued instructions, e.g. the opening
	// scene directive. Not player input.
	KindDirective
)

// Prompt is the opaque instruction payload for one backend call.
type Prompt struct {
	System string
	User   string
}

const systemDirectives = `You are the narrative engine for an original interactive novel set in a romantic high-fantasy fae world.
DO NOT reference your system role or the model. The player must never see technical or meta text.

Rules:
1. Each response must be valid JSON with no extra text before or after it. The JSON object must contain exactly these keys:
   - "narrative": a string paragraph (2-6 sentences) continuing the story.
   - "choices": an array of 3 to 5 short, distinct strings the player can pick next.
   - "state_updates": an object with small changes to the player state (e.g. {"relationship": {"Rhys": 1}, "hp": -1}); may be empty.
   - "scene_id": a short identifier for the scene, e.g. "mansion_hall_01".
2. If the player's input is a free-text action rather than one of the offered choices, interpret it plausibly in-world, then generate the next scene normally.
3. Keep choices consequential and clearly different; never emit duplicates.
4. Maintain continuity with the player state and the recent history provided.
5. If the story risks large-scale violence or sexual content, keep it brief and non-graphic; do not produce explicit sexual content.`

// Composer renders prompts against a fixed worldbook.
type Composer struct {
	book *worldbook.Book
}

// NewComposer creates a composer. A nil book uses the default worldbook.
func NewComposer(book *worldbook.Book) *Composer {
	if book == nil {
		book = worldbook.Default()
	}
	return &Composer{book: book}
}

// Opening returns the directive that seeds the opening scene.
func (c *Composer) Opening() string {
	return c.book.Opening
}

// Compose builds the payload for one generate call. The state snapshot and
// window are read-only; nothing here has side effects.
func (c *Composer) Compose(state *character.State, window []story.Entry, input string, kind InputKind) Prompt {
	system := systemDirectives
	if len(c.book.Tone) > 0 {
		system += "\n" + strings.Join(c.book.Tone, "\n")
	}

	stateJSON, _ := json.Marshal(state)

	var b strings.Builder
	fmt.Fprintf(&b, "Player character (JSON): %s\n\n", stateJSON)

	b.WriteString("Recent history (most recent last):\n")
	b.WriteString(renderWindow(window))
	b.WriteString("\n\n")

	switch kind {
	case KindChoice:
		b.WriteString("The player selected this from the offered choices:\n")
	case KindDirective:
		b.WriteString("Directive:\n")
	default:
		b.WriteString("The player typed this as a free-text custom action:\n")
	}
	b.WriteString(input)
	b.WriteString("\n\n")

	if kind != KindDirective {
		b.WriteString("If the input textually matches one of the previously offered choices, continue that branch. ")
		b.WriteString("Otherwise interpret it as a novel action and continue. ")
	}
	b.WriteString("Respond ONLY with the JSON object specified by the system prompt.")

	return Prompt{System: system, User: b.String()}
}

func renderWindow(window []story.Entry) string {
	if len(window) == 0 {
		return "None yet."
	}

	lines := make([]string, 0, len(window))
	for i, e := range window {
		lines = append(lines, fmt.Sprintf("%d. Scene: %s\n   Choice: %s", i+1, excerpt(e.Narrative), e.ChoiceTaken))
	}
	return strings.Join(lines, "\n")
}

func excerpt(narrative string) string {
	runes := []rune(narrative)
	if len(runes) <= excerptLen {
		return narrative
	}
	return string(runes[:excerptLen]) + "…"
}
