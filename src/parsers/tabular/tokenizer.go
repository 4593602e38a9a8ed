// src/parsers/tabular/tokenizer.go
package tabular

import (
	"errors"
	"iter"
	"regexp"
	"strings"
)

var (
	ErrNoInput        = errors.New("no input: paste spreadsheet rows first")
	ErrNoParsableRows = errors.New("no parsable rows in pasted data")
	ErrInvalidNumber  = errors.New("invalid number")
)

// Spreadsheets export either tab-delimited or space-padded text.
var delimiterPattern = regexp.MustCompile(`\t| {2,}`)

// ParsedRow is one split line. Line is 1-based within the pasted block.
type ParsedRow struct {
	Line    int
	Columns []string
}

// Column returns the trimmed column at i, or "" when the row is shorter.
func (r ParsedRow) Column(i int) string {
	if i < 0 || i >= len(r.Columns) {
		return ""
	}
	return r.Columns[i]
}

type TokenizerOptions struct {
	// NoiseMarkers drop any line containing one of them (headers, totals).
	NoiseMarkers []string
	MinColumns   int
}

// Tokenize splits a pasted block into rows. Blank lines, noise lines and rows
// shorter than MinColumns are dropped without error. The block is not trimmed
// as a whole so a leading tab on the first line still marks an empty column.
func Tokenize(raw string, opts TokenizerOptions) (iter.Seq[ParsedRow], error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoInput
	}
	return func(yield func(ParsedRow) bool) {
		lineNo := 0
		for line := range strings.Lines(raw) {
			lineNo++
			line = strings.TrimRight(line, "\r\n")
			if strings.TrimSpace(line) == "" || containsAny(line, opts.NoiseMarkers) {
				continue
			}
			cols := delimiterPattern.Split(line, -1)
			if len(cols) < opts.MinColumns {
				continue
			}
			for i := range cols {
				cols[i] = strings.TrimSpace(cols[i])
			}
			if !yield(ParsedRow{Line: lineNo, Columns: cols}) {
				return
			}
		}
	}, nil
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
