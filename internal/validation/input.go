package validation

import (
	"fmt"
	"regexp"
	"unicode"

	"github.com/maraval/faeweave/internal/llm"
)

// MaxInputLen caps player input length; model output budgets assume short
// actions, not pasted documents.
const MaxInputLen = 500

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID validates session ID format.
func ValidateSessionID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("session ID must be 1-64 characters")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("session ID can only contain alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateName validates a character name.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > 64 {
		return fmt.Errorf("name must be 1-64 characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name contains control characters")
		}
	}
	return nil
}

// ValidatePlayerInput validates a choice label or free-text action.
func ValidatePlayerInput(input string) error {
	if len(input) == 0 {
		return fmt.Errorf("input must not be empty")
	}
	if len(input) > MaxInputLen {
		return fmt.Errorf("input must be at most %d characters", MaxInputLen)
	}
	return nil
}

// ValidateTemperature validates a generation temperature.
func ValidateTemperature(t float64) error {
	if t < llm.MinTemperature || t > llm.MaxTemperature {
		return fmt.Errorf("temperature must be between %g and %g", llm.MinTemperature, llm.MaxTemperature)
	}
	return nil
}

// ValidateMaxTokens validates a response token budget.
func ValidateMaxTokens(n int) error {
	if n < llm.MinMaxTokens || n > llm.MaxMaxTokens {
		return fmt.Errorf("max tokens must be between %d and %d", llm.MinMaxTokens, llm.MaxMaxTokens)
	}
	return nil
}
