package engine

import (
	"context"
	"sync"

	"github.com/maraval/faeweave/internal/character"
	"github.com/maraval/faeweave/internal/llm"
	"github.com/maraval/faeweave/internal/prompt"
	"github.com/maraval/faeweave/internal/worldbook"
)

// fakeGenerator returns scripted responses for unit tests.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int

	// block, when non-nil, is closed by the test to release an in-flight
	// call. Used for cancellation tests.
	block chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, p prompt.Prompt, opts llm.Options) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	err := f.err
	var response string
	if len(f.responses) > 0 {
		response = f.responses[0]
		if len(f.responses) > 1 {
			f.responses = f.responses[1:]
		}
	}
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return "", err
	}
	return response, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func createTestCharacter() *character.State {
	st, err := character.New(character.CreationInput{
		Name:      "Aryn",
		Court:     "Night Court (mysterious)",
		Archetype: "Wary Survivor",
		Strength:  5,
		Guile:     6,
		Magic:     3,
	}, worldbook.Default())
	if err != nil {
		panic(err)
	}
	return st
}

func createTestSession(gen Generator) *Session {
	s, err := NewSession("test-session", createTestCharacter(), Config{Generator: gen})
	if err != nil {
		panic(err)
	}
	return s
}
