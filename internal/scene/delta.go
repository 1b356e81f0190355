// Package scene defines the structured payload extracted from one backend
// response and the validating parser that produces it.
package scene

// MaxChoices is the upper bound on choices in a single scene. Zero choices
// means a free-action-only scene.
const MaxChoices = 5

// Delta is one validated scene continuation. A Delta is either fully valid or
// rejected in full; there is no partial application.
type Delta struct {
	SceneID   string   `json:"scene_id"`
	Narrative string   `json:"narrative"`
	Choices   []string `json:"choices"`

	// StateUpdates maps attribute names to numeric deltas or replacement
	// values. May be empty.
	StateUpdates map[string]any `json:"state_updates,omitempty"`
}
