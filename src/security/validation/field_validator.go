// backend/src/security/validation/field_validator.go
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/civil"

	"github.com/username/cashflowrisk/backend/src/logger"
)

var ErrValidationFailed = errors.New("validation failed")

const (
	MaxScenarioLength = 128
	MaxUrgencyLength  = 64
	MaxUrgencyValues  = 32
)

// --- String Validators ---

// ValidateStringNotEmpty checks if a string is not empty after trimming.
func ValidateStringNotEmpty(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidationFailed, fieldName)
	}
	return nil
}

// ValidateStringMaxLength checks if a string's UTF-8 character count is within max bounds.
func ValidateStringMaxLength(s string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(s) > maxLength {
		return fmt.Errorf("%w: %s exceeds maximum length of %d characters", ErrValidationFailed, fieldName, maxLength)
	}
	return nil
}

// --- Query Parameter Validators ---

// ValidateScenario checks a scenario label taken from a request.
func ValidateScenario(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, "scenario"); err != nil {
		return "", err
	}
	if err := ValidateStringMaxLength(trimmed, MaxScenarioLength, "scenario"); err != nil {
		return "", err
	}
	return trimmed, nil
}

// ValidateDateParam parses an optional YYYY-MM-DD parameter. An empty value yields nil.
func ValidateDateParam(s, fieldName string) (*civil.Date, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s ('%s') is not a valid date (expected YYYY-MM-DD)", ErrValidationFailed, fieldName, s)
	}
	return &d, nil
}

// ValidateUrgencies cleans a list of urgency labels, accepting repeated and
// comma-separated values. Blank entries are ignored and duplicates removed.
func ValidateUrgencies(values []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" || seen[part] {
				continue
			}
			if err := ValidateStringMaxLength(part, MaxUrgencyLength, "urgency"); err != nil {
				return nil, err
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	if len(out) > MaxUrgencyValues {
		logger.L.Warn("Too many urgency values in filter", "count", len(out), "max", MaxUrgencyValues)
		return nil, fmt.Errorf("%w: at most %d urgency values allowed", ErrValidationFailed, MaxUrgencyValues)
	}
	return out, nil
}
