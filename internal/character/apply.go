package character

// Apply merges a scene's state updates into the character and returns a new
// snapshot; the input state is never touched. Numeric values are deltas added
// to the existing value (missing keys count as 0, negative deltas supported).
// Anything else replaces the existing value outright. Keys outside the typed
// fields land in the open Attributes mapping; the backend is verified at the
// schema level only, not the semantic level.
func Apply(s *State, updates map[string]any) *State {
	out := s.Clone()

	for key, value := range updates {
		if delta, ok := asNumber(value); ok {
			out.addNumeric(key, delta)
			continue
		}
		out.replace(key, value)
	}

	return out
}

// asNumber reports whether a decoded JSON value is numeric. encoding/json
// decodes numbers in an open mapping as float64.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (s *State) addNumeric(key string, delta float64) {
	switch key {
	case "hp":
		s.HP += int(delta)
	case "strength":
		s.Strength += int(delta)
	case "guile":
		s.Guile += int(delta)
	case "magic":
		s.Magic += int(delta)
	default:
		if s.Attributes == nil {
			s.Attributes = make(map[string]any)
		}
		prev, _ := asNumber(s.Attributes[key])
		s.Attributes[key] = prev + delta
	}
}

func (s *State) replace(key string, value any) {
	switch key {
	case "name":
		if v, ok := value.(string); ok {
			s.Name = v
			return
		}
	case "court":
		if v, ok := value.(string); ok {
			s.Court = v
			return
		}
	case "archetype":
		if v, ok := value.(string); ok {
			s.Archetype = v
			return
		}
	case "relationship":
		if m, ok := value.(map[string]any); ok {
			s.Relationship = make(map[string]int, len(m))
			for name, raw := range m {
				if score, isNum := asNumber(raw); isNum {
					s.Relationship[name] = int(score)
				}
			}
			return
		}
	case "inventory":
		if items, ok := value.([]any); ok {
			s.Inventory = make([]string, 0, len(items))
			for _, raw := range items {
				if item, isStr := raw.(string); isStr {
					s.Inventory = append(s.Inventory, item)
				}
			}
			return
		}
	}

	// Mistyped values for typed fields, and any novel key, go into the open
	// mapping rather than being dropped.
	if s.Attributes == nil {
		s.Attributes = make(map[string]any)
	}
	s.Attributes[key] = value
}
