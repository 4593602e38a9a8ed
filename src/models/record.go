// src/models/record.go
package models

import (
	"fmt"
	"math"
	"strings"
)

// Domain selects which business table a pasted block is ingested into.
type Domain string

const (
	DomainWorkLog Domain = "worklog"
	DomainLedger  Domain = "ledger"
)

// ParseDomain maps a path segment onto a known Domain.
func ParseDomain(s string) (Domain, bool) {
	switch Domain(strings.ToLower(strings.TrimSpace(s))) {
	case DomainWorkLog:
		return DomainWorkLog, true
	case DomainLedger:
		return DomainLedger, true
	}
	return "", false
}

// Row is one store row keyed by column name.
type Row map[string]any

// Approx is a numeric match value compared with an absolute tolerance
// instead of exact equality. Gateways understand it in QueryMatch field maps.
type Approx struct {
	Value     float64
	Tolerance float64
}

// Matches reports whether v lies strictly within the tolerance.
func (a Approx) Matches(v float64) bool {
	return math.Abs(a.Value-v) < a.Tolerance
}

// Record is a canonical business record, either a candidate produced by the
// pipeline or an existing one rebuilt from the store.
type Record interface {
	RecordDate() string
	Key() DedupKey
	ToRow() Row
	Describe() string
}

// KeyField is one component of a natural key.
type KeyField struct {
	Column  string
	Text    string
	Number  float64
	Numeric bool
}

// DedupKey is the ordered natural key used to recognise the same business event.
type DedupKey []KeyField

// Equal compares text fields exactly and numeric fields within tolerance.
func (k DedupKey) Equal(other DedupKey, tolerance float64) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		a, b := k[i], other[i]
		if a.Column != b.Column || a.Numeric != b.Numeric {
			return false
		}
		if a.Numeric {
			if math.Abs(a.Number-b.Number) >= tolerance {
				return false
			}
			continue
		}
		if a.Text != b.Text {
			return false
		}
	}
	return true
}

// MatchFields turns the key into a field map for a single-row existence query.
func (k DedupKey) MatchFields(tolerance float64) Row {
	fields := make(Row, len(k))
	for _, f := range k {
		if f.Numeric {
			fields[f.Column] = Approx{Value: f.Number, Tolerance: tolerance}
		} else {
			fields[f.Column] = f.Text
		}
	}
	return fields
}

// String renders the key for logs and skipped-record samples.
func (k DedupKey) String() string {
	parts := make([]string, 0, len(k))
	for _, f := range k {
		if f.Numeric {
			parts = append(parts, fmt.Sprintf("%s=%s", f.Column, FormatAmount(f.Number)))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", f.Column, f.Text))
		}
	}
	return strings.Join(parts, ", ")
}

// FormatAmount prints whole numbers without a fractional part.
func FormatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// RowString reads a text column, tolerating driver-specific representations.
func RowString(row Row, column string) string {
	switch v := row[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// RowFloat reads a numeric column. Unknown or non-finite values read as zero.
func RowFloat(row Row, column string) float64 {
	var f float64
	switch v := row[column].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case string:
		fmt.Sscanf(v, "%g", &f)
	case []byte:
		fmt.Sscanf(string(v), "%g", &f)
	case fmt.Stringer:
		fmt.Sscanf(v.String(), "%g", &f)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// RowInt64 reads an integer column such as the surrogate id.
func RowInt64(row Row, column string) int64 {
	switch v := row[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// RowDate reads a date column as YYYY-MM-DD, dropping any time component
// a driver may attach.
func RowDate(row Row, column string) string {
	if t, ok := row[column].(interface{ Format(string) string }); ok {
		return t.Format("2006-01-02")
	}
	s := RowString(row, column)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
