package validation

import (
	"fmt"
	"regexp"

	"github.com/kaibayosung/ohsung-system/src/logger"
)

// Script-bearing markup never appears in a spreadsheet copy; text containing it
// was pasted from somewhere else.
var scriptPatternsRegex = regexp.MustCompile(
	`(?i)<script|onerror=|onload=|onmouseover=|javascript:|vbscript:|<iframe|<object|<embed`,
)

func truncateForLog(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// CheckScriptPatterns rejects text carrying script markup.
func CheckScriptPatterns(s, fieldName string) error {
	if loc := scriptPatternsRegex.FindStringIndex(s); loc != nil {
		logger.L.Warn("Script pattern in pasted content", "field", fieldName, "contentPreview", truncateForLog(s[loc[0]:], 50))
		return fmt.Errorf("%w: %s contains script markup", ErrValidationFailed, fieldName)
	}
	return nil
}
