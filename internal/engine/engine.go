// Package engine drives scene progression: it turns player input into one
// atomic compose → generate → parse → apply → append transition, or leaves
// the session untouched on failure.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maraval/faeweave/internal/character"
	"github.com/maraval/faeweave/internal/llm"
	"github.com/maraval/faeweave/internal/policy"
	"github.com/maraval/faeweave/internal/prompt"
	"github.com/maraval/faeweave/internal/scene"
	"github.com/maraval/faeweave/internal/story"
	"github.com/maraval/faeweave/internal/worldbook"
)

// Generator is the opaque backend capability the engine depends on.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt, opts llm.Options) (string, error)
}

// Phase is the session's position in the progression state machine. A failed
// cycle is not a phase: the session stays where it was, with the failure
// retrievable from LastFailure.
type Phase int

const (
	// PhaseAwaitingCharacter exists only as the zero value; NewSession
	// requires a character, so live sessions start at the next phase.
	PhaseAwaitingCharacter Phase = iota
	PhaseAwaitingOpeningScene
	PhaseAwaitingInput
	PhaseResolving
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingCharacter:
		return "awaiting_character"
	case PhaseAwaitingOpeningScene:
		return "awaiting_opening_scene"
	case PhaseAwaitingInput:
		return "awaiting_input"
	case PhaseResolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// ErrInvalidPhase is returned when an operation is not valid from the
// session's current phase.
var ErrInvalidPhase = errors.New("operation not valid in current phase")

// Failure is the report attached to the session after a failed cycle. Raw
// holds the verbatim backend text for parse failures so the output can be
// inspected without corrupting the story so far.
type Failure struct {
	Err error
	Raw string
}

// Result is one applied transition.
type Result struct {
	Entry story.Entry

	// Alerts are the policy rules fired by the new state, e.g. "defeated".
	Alerts []string
}

// Export is the on-demand serializable snapshot of a session.
type Export struct {
	Player  *character.State `json:"player"`
	History []story.Entry    `json:"history"`
}

// Config wires a session's collaborators. Generator is required; a nil
// worldbook or policy falls back to the defaults.
type Config struct {
	Generator Generator
	Options   llm.Options
	Worldbook *worldbook.Book
	Policy    *policy.Policy
}

// Session is one player's engine instance: character state, ledger, and the
// progression state machine. All operations on a session are serialized by
// its mutex; distinct sessions share nothing.
type Session struct {
	ID string

	mu          sync.Mutex
	phase       Phase
	state       *character.State
	initial     *character.State
	ledger      *story.Ledger
	composer    *prompt.Composer
	gen         Generator
	opts        llm.Options
	pol         *policy.Policy
	lastFailure *Failure
	createdAt   time.Time
	updatedAt   time.Time
}

// NewSession creates a session for a freshly created character.
func NewSession(id string, st *character.State, cfg Config) (*Session, error) {
	if st == nil {
		return nil, errors.New("session requires a character state")
	}
	if cfg.Generator == nil {
		return nil, errors.New("session requires a generator")
	}
	if cfg.Policy == nil {
		cfg.Policy = policy.Default()
	}

	now := time.Now()
	return &Session{
		ID:        id,
		phase:     PhaseAwaitingOpeningScene,
		state:     st.Clone(),
		initial:   st.Clone(),
		ledger:    story.NewLedger(),
		composer:  prompt.NewComposer(cfg.Worldbook),
		gen:       cfg.Generator,
		opts:      cfg.Options.Normalize(),
		pol:       cfg.Policy,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// LoadSession rebuilds a session from persisted state and history.
func LoadSession(id string, st *character.State, history []story.Entry, cfg Config) (*Session, error) {
	s, err := NewSession(id, st, cfg)
	if err != nil {
		return nil, err
	}
	for _, e := range history {
		s.ledger.Append(e)
	}
	if s.ledger.Len() > 0 {
		s.phase = PhaseAwaitingInput
	}
	return s, nil
}

// Begin requests the opening scene using the worldbook's opening directive.
// The ledger records the opening with an empty choiceTaken.
func (s *Session) Begin(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingOpeningScene {
		return nil, fmt.Errorf("%w: begin from %s", ErrInvalidPhase, s.phase)
	}
	return s.resolve(ctx, s.composer.Opening(), prompt.KindDirective, "")
}

// Advance runs one full transition for the player's input. On any adapter or
// parse failure the character state and ledger are byte-for-byte unchanged
// and the session stays in its prior phase for retry.
func (s *Session) Advance(ctx context.Context, input string, kind prompt.InputKind) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseAwaitingInput, PhaseAwaitingOpeningScene:
	default:
		return nil, fmt.Errorf("%w: advance from %s", ErrInvalidPhase, s.phase)
	}
	return s.resolve(ctx, input, kind, input)
}

// resolve is the atomic transition. Caller holds the lock.
func (s *Session) resolve(ctx context.Context, input string, kind prompt.InputKind, choiceTaken string) (*Result, error) {
	prev := s.phase
	s.phase = PhaseResolving

	// Cancellation before the backend call has no side effects at all.
	if err := ctx.Err(); err != nil {
		return s.fail(prev, &llm.AdapterError{Kind: llm.ErrTimeout, Err: err}, "")
	}

	p := s.composer.Compose(s.state, s.ledger.Window(prompt.HistoryWindow), input, kind)

	raw, err := s.gen.Generate(ctx, p, s.opts)
	if err != nil {
		return s.fail(prev, err, "")
	}

	// A late-arriving response to a cancelled call is discarded, never
	// applied.
	if err := ctx.Err(); err != nil {
		return s.fail(prev, &llm.AdapterError{Kind: llm.ErrTimeout, Err: err}, "")
	}

	delta, err := scene.Parse(raw)
	if err != nil {
		return s.fail(prev, err, raw)
	}

	next := character.Apply(s.state, delta.StateUpdates)
	alerts := s.pol.Enforce(next)

	entry := story.Entry{
		SceneID:     delta.SceneID,
		Narrative:   delta.Narrative,
		Choices:     delta.Choices,
		ChoiceTaken: choiceTaken,
		RawOutput:   raw,
	}

	// State and ledger advance together or not at all.
	s.state = next
	s.ledger.Append(entry)
	s.phase = PhaseAwaitingInput
	s.lastFailure = nil
	s.updatedAt = time.Now()

	if len(alerts) > 0 {
		slog.Info("policy alerts", "session", s.ID, "scene", entry.SceneID, "alerts", alerts)
	}

	return &Result{Entry: entry, Alerts: alerts}, nil
}

func (s *Session) fail(prev Phase, err error, raw string) (*Result, error) {
	s.phase = prev
	s.lastFailure = &Failure{Err: err, Raw: raw}
	return nil, err
}

// Restart resets the session wholesale: the ledger is cleared and the
// character is replaced with its creation-time snapshot.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.initial.Clone()
	s.ledger.Reset()
	s.phase = PhaseAwaitingOpeningScene
	s.lastFailure = nil
	s.updatedAt = time.Now()
}

// State returns a snapshot of the character state.
func (s *Session) State() *character.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// CurrentScene returns the last applied scene, or nil before the opening.
func (s *Session) CurrentScene() *story.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Current()
}

// History returns the last n ledger entries, most-recent-last.
func (s *Session) History(n int) []story.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Window(n)
}

// HistoryLen returns the number of applied scenes.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastFailure returns the report from the most recent failed cycle, or nil
// after a success.
func (s *Session) LastFailure() *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

// ExportStory yields the serializable {player, history} snapshot.
func (s *Session) ExportStory() Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Export{
		Player:  s.state.Clone(),
		History: s.ledger.Entries(),
	}
}

// Info returns summary metadata for API listings.
func (s *Session) Info() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := map[string]any{
		"id":         s.ID,
		"player":     s.state.Name,
		"court":      s.state.Court,
		"phase":      s.phase.String(),
		"scenes":     s.ledger.Len(),
		"created_at": s.createdAt,
		"updated_at": s.updatedAt,
	}
	if current := s.ledger.Current(); current != nil {
		info["current_scene"] = current.SceneID
	}
	return info
}
