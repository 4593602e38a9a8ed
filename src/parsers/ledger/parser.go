// src/parsers/ledger/parser.go
package ledger

import (
	"fmt"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers/tabular"
	"github.com/kaibayosung/ohsung-system/src/processors"
)

// Column positions of the daily cash sheet. Column 3 is a free memo and is
// not stored.
const (
	colDate         = 0
	colCompany      = 1
	colDescription  = 2
	colCashIncome   = 4
	colCashExpense  = 5
	colCardExpense  = 6
	colOtherExpense = 7
)

const MinColumns = 5

// DefaultNoiseMarkers match the sheet's header and subtotal lines.
var DefaultNoiseMarkers = []string{"날자", "수입", "지출계"}

type Options struct {
	NoiseMarkers []string
	Strict       bool
	Builder      *processors.RecordBuilder
}

// LedgerParser turns pasted cash sheet rows into ledger entries.
type LedgerParser struct {
	noise   []string
	strict  bool
	builder *processors.RecordBuilder
}

func NewParser(opts Options) *LedgerParser {
	builder := opts.Builder
	if builder == nil {
		builder = processors.NewRecordBuilder(opts.Strict)
	}
	noise := opts.NoiseMarkers
	if len(noise) == 0 {
		noise = DefaultNoiseMarkers
	}
	return &LedgerParser{noise: noise, strict: opts.Strict, builder: builder}
}

func (p *LedgerParser) Domain() models.Domain { return models.DomainLedger }

// Parse fans every row out into one entry per non-zero amount column.
func (p *LedgerParser) Parse(raw string) (*models.Analysis, error) {
	rows, err := tabular.Tokenize(raw, tabular.TokenizerOptions{NoiseMarkers: p.noise, MinColumns: MinColumns})
	if err != nil {
		return nil, err
	}

	analysis := &models.Analysis{Domain: models.DomainLedger}
	var carry tabular.DateCarry
	for row := range rows {
		date, ok := carry.Resolve(row.Column(colDate))
		if !ok {
			analysis.DroppedRows++
			continue
		}
		fields, err := p.normalize(row, date)
		if err != nil {
			analysis.Rejections = append(analysis.Rejections, models.RowRejection{Line: row.Line, Reason: err.Error()})
			continue
		}
		entries := p.builder.BuildLedgerEntries(fields)
		if len(entries) == 0 {
			analysis.Rejections = append(analysis.Rejections, models.RowRejection{Line: row.Line, Reason: "no amount"})
			continue
		}
		for _, e := range entries {
			analysis.Records = append(analysis.Records, e)
		}
	}

	if len(analysis.Records) == 0 {
		return analysis, tabular.ErrNoParsableRows
	}
	return analysis, nil
}

func (p *LedgerParser) normalize(row tabular.ParsedRow, date string) (processors.LedgerFields, error) {
	f := processors.LedgerFields{
		Date:         date,
		Counterparty: row.Column(colCompany),
		Description:  row.Column(colDescription),
	}
	amounts := []struct {
		col  int
		name string
		dst  *float64
	}{
		{colCashIncome, "cash income", &f.CashIncome},
		{colCashExpense, "cash expense", &f.CashExpense},
		{colCardExpense, "card expense", &f.CardExpense},
		{colOtherExpense, "other expense", &f.OtherExpense},
	}
	for _, a := range amounts {
		v, err := tabular.ParseAmount(row.Column(a.col), p.strict)
		if err != nil {
			return processors.LedgerFields{}, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = v
	}
	return f, nil
}
