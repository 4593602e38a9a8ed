// src/parsers/tabular/normalizer.go
package tabular

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DateCarry resolves the date of each row in a block, inheriting the last
// explicit date for rows whose date cell is blank or not a date.
type DateCarry struct {
	current string
}

// Resolve returns the row's date. ok is false when the block has not yet
// produced an explicit date, in which case the row must be dropped.
func (c *DateCarry) Resolve(cell string) (date string, ok bool) {
	cell = strings.TrimSpace(cell)
	if IsISODate(cell) {
		c.current = cell
		return cell, true
	}
	return c.current, c.current != ""
}

// IsISODate accepts YYYY-MM-DD strings that name a real calendar day.
func IsISODate(s string) bool {
	if !isoDatePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

var (
	groupingReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "")
	// Plain decimals only; exponent notation is not a spreadsheet display format.
	plainDecimalPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)$`)
)

// maxAmountLength bounds a cleaned cell so a pasted digit run cannot turn into
// an oversized big-number conversion.
const maxAmountLength = 40

// ParseAmount parses a spreadsheet number such as "2,000,000". Blank cells are
// zero in both modes. In lenient mode an unparsable cell is zero; in strict
// mode it is an ErrInvalidNumber. The result is always finite.
func ParseAmount(cell string, strict bool) (float64, error) {
	cleaned := groupingReplacer.Replace(strings.TrimSpace(cell))
	if cleaned == "" || cleaned == "-" {
		return 0, nil
	}
	invalid := func() (float64, error) {
		if strict {
			return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, cell)
		}
		return 0, nil
	}
	if len(cleaned) > maxAmountLength || !plainDecimalPattern.MatchString(cleaned) {
		return invalid()
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return invalid()
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return invalid()
	}
	return v, nil
}
