// src/security/validation/field_validator.go
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kaibayosung/ohsung-system/src/logger"
)

var ErrValidationFailed = fmt.Errorf("validation failed")

const (
	DefaultMaxStringLength = 255
	MaxEmailLength         = 254
	MaxPastedTextLength    = 2 << 20
	MaxIdentifierLength    = 63
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

// ValidateStringRegex checks if a string matches a given regex pattern.
func ValidateStringRegex(s string, pattern *regexp.Regexp, fieldName, formatDescription string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: %s ('%s') is not in the expected format (%s)", ErrValidationFailed, fieldName, s, formatDescription)
	}
	return nil
}

// --- Numeric Validators ---

// ValidateIntString parses a string to int and checks if it's within a range.
func ValidateIntString(s, fieldName string, minVal, maxVal int) (int, error) {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, fieldName); err != nil {
		return 0, err
	}
	val, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %s ('%s') is not a valid integer: %v", ErrValidationFailed, fieldName, s, err)
	}
	if val < minVal || val > maxVal {
		logger.L.Warn("Integer value out of range", "field", fieldName, "value", val, "min", minVal, "max", maxVal)
		return 0, fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrValidationFailed, fieldName, minVal, maxVal, val)
	}
	return val, nil
}

// --- Specific Format Validators ---

var (
	identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	emailRegex      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ValidateSQLIdentifier guards table and column names that are interpolated
// into SQL text. Values are always bound, never interpolated.
func ValidateSQLIdentifier(s string) error {
	if err := ValidateStringMaxLength(s, MaxIdentifierLength, "identifier"); err != nil {
		return err
	}
	return ValidateStringRegex(s, identifierRegex, "identifier", "lowercase letters, digits and underscores")
}

// ValidateEmail checks the operator login name.
func ValidateEmail(s string) error {
	trimmed := strings.TrimSpace(s)
	if err := ValidateStringNotEmpty(trimmed, "email"); err != nil {
		return err
	}
	if err := ValidateStringMaxLength(trimmed, MaxEmailLength, "email"); err != nil {
		return err
	}
	return ValidateStringRegex(trimmed, emailRegex, "email", "name@domain")
}

// ValidatePastedText bounds the size of a pasted block.
func ValidatePastedText(s string) error {
	if len(s) > MaxPastedTextLength {
		return fmt.Errorf("%w: pasted text exceeds %d bytes", ErrValidationFailed, MaxPastedTextLength)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: pasted text is not valid UTF-8", ErrValidationFailed)
	}
	return CheckScriptPatterns(s, "pasted text")
}
