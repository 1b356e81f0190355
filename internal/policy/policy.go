// Package policy holds the optional bounds-clamping and condition rules run
// after a scene's state updates are applied. The schema-level parser trusts
// the backend's keys; policy is where semantic guardrails live.
package policy

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/maraval/faeweave/internal/character"
)

// Clamp bounds a named numeric attribute after each apply.
type Clamp struct {
	Attr string `json:"attr"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

// Rule is a named condition evaluated against the post-apply state. A fired
// rule surfaces as an alert on the advance result; it never blocks the
// transition.
type Rule struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`

	program *vm.Program
}

// Policy is a compiled set of clamps and rules.
type Policy struct {
	clamps []Clamp
	rules  []Rule
}

// New compiles a policy. Invalid rule conditions are rejected up front.
func New(clamps []Clamp, rules []Rule) (*Policy, error) {
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		program, err := expr.Compile(r.Condition)
		if err != nil {
			return nil, fmt.Errorf("invalid condition for rule %s: %w", r.Name, err)
		}
		r.program = program
		compiled = append(compiled, r)
	}
	return &Policy{clamps: clamps, rules: compiled}, nil
}

// Default clamps the creation stats to 0-10, leaves hp unclamped, and flags
// the character as defeated when hp reaches zero.
func Default() *Policy {
	p, err := New(
		[]Clamp{
			{Attr: "strength", Min: 0, Max: 10},
			{Attr: "guile", Min: 0, Max: 10},
			{Attr: "magic", Min: 0, Max: 10},
		},
		[]Rule{
			{Name: "defeated", Condition: "hp <= 0"},
		},
	)
	if err != nil {
		panic(err) // built-in conditions always compile
	}
	return p
}

// Enforce applies clamps to the snapshot in place and returns the names of
// all fired rules. Rules that fail to evaluate are skipped; a condition over
// a replaced-by-string stat is the backend's problem, not a reason to refuse
// the transition.
func (p *Policy) Enforce(st *character.State) []string {
	for _, c := range p.clamps {
		p.clamp(st, c)
	}

	var fired []string
	if len(p.rules) == 0 {
		return fired
	}

	env := ruleEnv(st)
	for _, r := range p.rules {
		result, err := expr.Run(r.program, env)
		if err != nil {
			continue
		}
		if ok, isBool := result.(bool); isBool && ok {
			fired = append(fired, r.Name)
		}
	}
	return fired
}

func (p *Policy) clamp(st *character.State, c Clamp) {
	switch c.Attr {
	case "hp":
		st.HP = bound(st.HP, c)
	case "strength":
		st.Strength = bound(st.Strength, c)
	case "guile":
		st.Guile = bound(st.Guile, c)
	case "magic":
		st.Magic = bound(st.Magic, c)
	default:
		if raw, ok := st.Attributes[c.Attr]; ok {
			if v, isNum := raw.(float64); isNum {
				st.Attributes[c.Attr] = float64(bound(int(v), c))
			}
		}
	}
}

func bound(v int, c Clamp) int {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// ruleEnv flattens the state into the expression environment.
func ruleEnv(st *character.State) map[string]any {
	env := map[string]any{
		"name":         st.Name,
		"court":        st.Court,
		"archetype":    st.Archetype,
		"strength":     st.Strength,
		"guile":        st.Guile,
		"magic":        st.Magic,
		"hp":           st.HP,
		"inventory":    st.Inventory,
		"relationship": st.Relationship,
	}
	for k, v := range st.Attributes {
		if _, taken := env[k]; !taken {
			env[k] = v
		}
	}
	return env
}
