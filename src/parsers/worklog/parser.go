// src/parsers/worklog/parser.go
package worklog

import (
	"fmt"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers/tabular"
	"github.com/kaibayosung/ohsung-system/src/processors"
)

// Column positions of the production sheet.
const (
	colDate = iota
	colCustomer
	colProduct
	colSpec
	colWeight
	colUnitPrice
	colTotal
	colType
)

// MinColumns is the shortest row that still carries a weight.
const MinColumns = 5

// DefaultNoiseMarkers identify the production sheet's header line.
var DefaultNoiseMarkers = []string{"생산일자"}

type Options struct {
	NoiseMarkers []string
	Strict       bool
	Classifier   *processors.CategoryClassifier
	Builder      *processors.RecordBuilder
}

// WorkLogParser turns pasted production sheet rows into work entries.
type WorkLogParser struct {
	noise      []string
	strict     bool
	classifier *processors.CategoryClassifier
	builder    *processors.RecordBuilder
}

func NewParser(opts Options) (*WorkLogParser, error) {
	classifier := opts.Classifier
	if classifier == nil {
		var err error
		if classifier, err = processors.NewCategoryClassifier(processors.DefaultCategoryRules()); err != nil {
			return nil, err
		}
	}
	builder := opts.Builder
	if builder == nil {
		builder = processors.NewRecordBuilder(opts.Strict)
	}
	noise := opts.NoiseMarkers
	if len(noise) == 0 {
		noise = DefaultNoiseMarkers
	}
	return &WorkLogParser{noise: noise, strict: opts.Strict, classifier: classifier, builder: builder}, nil
}

func (p *WorkLogParser) Domain() models.Domain { return models.DomainWorkLog }

// Parse returns the analysis of a pasted block. When no row survives, the
// partial analysis is returned together with ErrNoParsableRows.
func (p *WorkLogParser) Parse(raw string) (*models.Analysis, error) {
	rows, err := tabular.Tokenize(raw, tabular.TokenizerOptions{NoiseMarkers: p.noise, MinColumns: MinColumns})
	if err != nil {
		return nil, err
	}

	analysis := &models.Analysis{Domain: models.DomainWorkLog}
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
		entry, err := p.builder.BuildWorkEntry(fields, p.classifier.Classify(fields.CategoryCode))
		if err != nil {
			analysis.Rejections = append(analysis.Rejections, models.RowRejection{Line: row.Line, Reason: err.Error()})
			continue
		}
		analysis.Records = append(analysis.Records, entry)
	}

	if len(analysis.Records) == 0 {
		return analysis, tabular.ErrNoParsableRows
	}
	return analysis, nil
}

func (p *WorkLogParser) normalize(row tabular.ParsedRow, date string) (processors.WorkFields, error) {
	weight, err := tabular.ParseAmount(row.Column(colWeight), p.strict)
	if err != nil {
		return processors.WorkFields{}, fmt.Errorf("weight: %w", err)
	}
	unitPrice, err := tabular.ParseAmount(row.Column(colUnitPrice), p.strict)
	if err != nil {
		return processors.WorkFields{}, fmt.Errorf("unit price: %w", err)
	}
	total, err := tabular.ParseAmount(row.Column(colTotal), p.strict)
	if err != nil {
		return processors.WorkFields{}, fmt.Errorf("total price: %w", err)
	}
	return processors.WorkFields{
		Date:         date,
		CustomerName: row.Column(colCustomer),
		ItemLabel:    row.Column(colProduct),
		ItemSpec:     row.Column(colSpec),
		CoilNumber:   row.Column(colProduct),
		Weight:       weight,
		UnitPrice:    unitPrice,
		TotalPrice:   total,
		CategoryCode: row.Column(colType),
	}, nil
}
