// src/services/pipeline.go
package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers"
	"github.com/oklog/ulid/v2"
)

// TableSpec tells the pipeline where a domain's records live.
type TableSpec struct {
	Name       string
	DateColumn string
	Decode     func(models.Row) models.Record
}

var (
	WorkLogTableSpec = TableSpec{
		Name:       models.WorkLogTable,
		DateColumn: models.WorkLogDateColumn,
		Decode:     func(r models.Row) models.Record { return models.WorkEntryFromRow(r) },
	}
	LedgerTableSpec = TableSpec{
		Name:       models.LedgerTable,
		DateColumn: models.LedgerDateColumn,
		Decode:     func(r models.Row) models.Record { return models.LedgerEntryFromRow(r) },
	}
)

// TableSpecFor maps a domain onto its table.
func TableSpecFor(domain models.Domain) (TableSpec, error) {
	switch domain {
	case models.DomainWorkLog:
		return WorkLogTableSpec, nil
	case models.DomainLedger:
		return LedgerTableSpec, nil
	}
	return TableSpec{}, fmt.Errorf("%w: %q", parsers.ErrUnknownDomain, domain)
}

// runIDSource hands out sortable run identifiers.
type runIDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newRunIDSource() *runIDSource {
	return &runIDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (s *runIDSource) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// Pipeline is one domain's parse → resolve → persist chain.
type Pipeline struct {
	parser   parsers.Parser
	table    TableSpec
	gateway  database.Gateway
	resolver DuplicateResolver
	runIDs   *runIDSource
}

func NewPipeline(parser parsers.Parser, table TableSpec, gateway database.Gateway, resolver DuplicateResolver) *Pipeline {
	return &Pipeline{
		parser:   parser,
		table:    table,
		gateway:  gateway,
		resolver: resolver,
		runIDs:   newRunIDSource(),
	}
}

// BuildPipelines wires one pipeline per domain around a shared gateway and resolver.
func BuildPipelines(gateway database.Gateway, resolver DuplicateResolver, opts parsers.Options) ([]*Pipeline, error) {
	var pipelines []*Pipeline
	for _, domain := range []models.Domain{models.DomainWorkLog, models.DomainLedger} {
		parser, err := parsers.GetParser(domain, opts)
		if err != nil {
			return nil, err
		}
		spec, err := TableSpecFor(domain)
		if err != nil {
			return nil, err
		}
		pipelines = append(pipelines, NewPipeline(parser, spec, gateway, resolver))
	}
	return pipelines, nil
}

func (p *Pipeline) Domain() models.Domain { return p.parser.Domain() }

// Analyze runs tokenizer, normalizer, classifier and builder synchronously.
func (p *Pipeline) Analyze(raw string) (*models.Analysis, error) {
	return p.parser.Parse(raw)
}

// Persist resolves duplicates and inserts the survivors. A resolution error
// leaves the store untouched. An insert error returns a FAILED result carrying
// the store's message verbatim and the best-effort written count.
func (p *Pipeline) Persist(ctx context.Context, records []models.Record) (models.IngestionResult, error) {
	runID := p.runIDs.Next()
	log := logger.ForRun(ctx, string(p.Domain()), runID)
	log.Info("Persist START", "candidates", len(records))

	resolution, err := p.resolver.Resolve(ctx, p.table, records)
	if err != nil {
		log.Warn("Duplicate resolution failed", "error", err)
		return models.IngestionResult{}, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	}

	result := models.IngestionResult{
		RunID:          runID,
		Domain:         p.Domain(),
		SkippedCount:   len(resolution.Skipped),
		SkippedSamples: resolution.SkippedSamples,
	}
	if result.SkippedSamples == nil {
		result.SkippedSamples = []string{}
	}

	if len(resolution.ToPersist) > 0 {
		rows := make([]models.Row, len(resolution.ToPersist))
		for i, rec := range resolution.ToPersist {
			rows[i] = rec.ToRow()
		}
		inserted, err := p.gateway.InsertBatch(ctx, p.table.Name, rows)
		result.AcceptedCount = inserted
		if err != nil {
			result.Status = models.StateFailed
			result.Error = err.Error()
			log.Error("Insert failed", "attempted", len(rows), "reportedInserted", inserted, "error", err)
			return result, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
		}
	}

	result.Status = models.StateSaved
	log.Info("Persist END", "accepted", result.AcceptedCount, "skipped", result.SkippedCount)
	return result, nil
}
