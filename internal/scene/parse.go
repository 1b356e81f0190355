package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Parse failure modes. SchemaError carries the offending field.
var (
	ErrNoJSONFound = errors.New("no JSON object found in backend output")
	ErrMalformed   = errors.New("backend output is not decodable JSON")
)

// SchemaError reports a decoded object that violates the scene schema.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation in %q: %s", e.Field, e.Reason)
}

// Parse extracts a validated Delta from raw backend text. The backend is
// instructed to return bare JSON but sometimes wraps it in markdown or stray
// prose, so decoding starts at the first opening brace and, if that fails,
// retries once with code-fence markers stripped. Both failure paths are
// named so callers can surface them instead of silently retrying.
func Parse(raw string) (*Delta, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, ErrNoJSONFound
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:]), &obj); err != nil {
		cleaned := strings.TrimSpace(raw)
		cleaned = strings.Trim(cleaned, "`")
		cleaned = strings.TrimPrefix(strings.TrimSpace(cleaned), "json")
		cleaned = strings.TrimSpace(cleaned)
		if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
			return nil, ErrMalformed
		}
	}

	return validate(obj)
}

func validate(obj map[string]any) (*Delta, error) {
	delta := &Delta{}

	rawNarrative, ok := obj["narrative"]
	if !ok {
		return nil, &SchemaError{Field: "narrative", Reason: "missing"}
	}
	narrative, ok := rawNarrative.(string)
	if !ok || narrative == "" {
		return nil, &SchemaError{Field: "narrative", Reason: "must be a non-empty string"}
	}
	delta.Narrative = narrative

	rawChoices, ok := obj["choices"]
	if !ok {
		return nil, &SchemaError{Field: "choices", Reason: "missing"}
	}
	list, ok := rawChoices.([]any)
	if !ok {
		return nil, &SchemaError{Field: "choices", Reason: "must be an array of strings"}
	}
	if len(list) > MaxChoices {
		return nil, &SchemaError{Field: "choices", Reason: fmt.Sprintf("at most %d entries", MaxChoices)}
	}
	seen := make(map[string]bool, len(list))
	delta.Choices = make([]string, 0, len(list))
	for _, raw := range list {
		choice, ok := raw.(string)
		if !ok || choice == "" {
			return nil, &SchemaError{Field: "choices", Reason: "entries must be non-empty strings"}
		}
		if seen[choice] {
			return nil, &SchemaError{Field: "choices", Reason: "duplicate entries"}
		}
		seen[choice] = true
		delta.Choices = append(delta.Choices, choice)
	}

	rawID, ok := obj["scene_id"]
	if !ok {
		return nil, &SchemaError{Field: "scene_id", Reason: "missing"}
	}
	id, ok := rawID.(string)
	if !ok {
		return nil, &SchemaError{Field: "scene_id", Reason: "must be a string"}
	}
	delta.SceneID = id

	if rawUpdates, present := obj["state_updates"]; present {
		updates, ok := rawUpdates.(map[string]any)
		if !ok {
			return nil, &SchemaError{Field: "state_updates", Reason: "must be a mapping"}
		}
		delta.StateUpdates = updates
	}

	return delta, nil
}
