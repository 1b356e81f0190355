// Package story keeps the append-only record of applied scenes. The ledger is
// the source of truth for the current scene and for the history window fed
// back into prompts.
package story

// Entry is one applied transition. Immutable once appended; ChoiceTaken is
// the empty string for the opening scene. RawOutput preserves the verbatim
// backend text for diagnostics and export.
type Entry struct {
	SceneID     string   `json:"scene_id"`
	Narrative   string   `json:"narrative"`
	Choices     []string `json:"choices"`
	ChoiceTaken string   `json:"choice_taken"`
	RawOutput   string   `json:"raw_llm"`
}

// Ledger is the ordered history of applied scenes. It is not internally
// locked; the owning engine serializes access.
type Ledger struct {
	entries []Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make([]Entry, 0)}
}

// Append adds an entry to the end of the ledger. The entry's choices are
// copied so later mutation of the caller's slice cannot reach the ledger.
func (l *Ledger) Append(e Entry) {
	e.Choices = copyChoices(e.Choices)
	l.entries = append(l.entries, e)
}

// Window returns the last n entries, most-recent-last, or fewer if the
// history is shorter.
func (l *Ledger) Window(n int) []Entry {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n <= 0 {
		return nil
	}

	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	for i := range out {
		out[i].Choices = copyChoices(out[i].Choices)
	}
	return out
}

// Current returns the last entry, or nil before the opening scene.
func (l *Ledger) Current() *Entry {
	if len(l.entries) == 0 {
		return nil
	}
	e := l.entries[len(l.entries)-1]
	e.Choices = copyChoices(e.Choices)
	return &e
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the full history in insertion order.
func (l *Ledger) Entries() []Entry {
	return l.Window(len(l.entries))
}

// Reset clears the ledger. Used only by explicit session restart.
func (l *Ledger) Reset() {
	l.entries = l.entries[:0]
}

func copyChoices(choices []string) []string {
	if choices == nil {
		return nil
	}
	out := make([]string, len(choices))
	copy(out, choices)
	return out
}
