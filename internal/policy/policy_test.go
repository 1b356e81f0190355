package policy

import (
	"testing"

	"github.com/maraval/faeweave/internal/character"
)

func testState() *character.State {
	return &character.State{
		Name:         "Aryn",
		Strength:     5,
		Guile:        6,
		Magic:        3,
		HP:           10,
		Relationship: map[string]int{},
		Inventory:    []string{},
	}
}

// TestDefaultClamps tests the built-in stat bounds.
func TestDefaultClamps(t *testing.T) {
	p := Default()

	st := testState()
	st.Strength = 14
	st.Magic = -2

	p.Enforce(st)

	if st.Strength != 10 {
		t.Errorf("Expected strength clamped to 10, got %d", st.Strength)
	}
	if st.Magic != 0 {
		t.Errorf("Expected magic clamped to 0, got %d", st.Magic)
	}
}

// TestDefaultLeavesHPUnclamped tests that hp may go negative.
func TestDefaultLeavesHPUnclamped(t *testing.T) {
	p := Default()

	st := testState()
	st.HP = -4
	p.Enforce(st)

	if st.HP != -4 {
		t.Errorf("Expected hp left at -4, got %d", st.HP)
	}
}

// TestDefeatedRule tests the hp rule fires at and below zero.
func TestDefeatedRule(t *testing.T) {
	p := Default()

	st := testState()
	if alerts := p.Enforce(st); len(alerts) != 0 {
		t.Errorf("Expected no alerts at hp 10, got %v", alerts)
	}

	st.HP = 0
	alerts := p.Enforce(st)
	if len(alerts) != 1 || alerts[0] != "defeated" {
		t.Errorf("Expected [defeated], got %v", alerts)
	}
}

// TestCustomRule tests compiling a rule over an open attribute.
func TestCustomRule(t *testing.T) {
	p, err := New(nil, []Rule{
		{Name: "beloved", Condition: `relationship["Rhys"] >= 3`},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	st := testState()
	st.Relationship["Rhys"] = 3

	alerts := p.Enforce(st)
	if len(alerts) != 1 || alerts[0] != "beloved" {
		t.Errorf("Expected [beloved], got %v", alerts)
	}
}

// TestInvalidCondition tests that bad expressions are rejected at compile
// time.
func TestInvalidCondition(t *testing.T) {
	if _, err := New(nil, []Rule{{Name: "broken", Condition: "hp <=> 0"}}); err == nil {
		t.Error("Expected compile error")
	}
}

// TestRuleEvalErrorSkipped tests that a rule over a replaced attribute does
// not block enforcement.
func TestRuleEvalErrorSkipped(t *testing.T) {
	p, err := New(nil, []Rule{
		{Name: "strong", Condition: "strength > 3"},
		{Name: "marked", Condition: "mark > 0"},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	st := testState()
	st.Attributes = map[string]any{"mark": "a string, not a number"}

	alerts := p.Enforce(st)
	if len(alerts) != 1 || alerts[0] != "strong" {
		t.Errorf("Expected only [strong], got %v", alerts)
	}
}

// TestClampOpenAttribute tests clamping a backend-introduced numeric key.
func TestClampOpenAttribute(t *testing.T) {
	p, err := New([]Clamp{{Attr: "favor", Min: 0, Max: 5}}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	st := testState()
	st.Attributes = map[string]any{"favor": float64(9)}

	p.Enforce(st)
	if v := st.Attributes["favor"].(float64); v != 5 {
		t.Errorf("Expected favor clamped to 5, got %v", v)
	}
}
