// src/services/dedup_strategy.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/processors"
	"github.com/kaibayosung/ohsung-system/src/utils"
)

const (
	StrategyAuto      = "auto"
	StrategyPrefetch  = "prefetch"
	StrategyPerRecord = "per_record"

	DefaultMaxPrefetchDays = 92
	DefaultSampleLimit     = 20
)

// DuplicateResolver splits a candidate batch into new records and duplicates
// of what the store already holds.
type DuplicateResolver interface {
	Resolve(ctx context.Context, table TableSpec, candidates []models.Record) (processors.Resolution, error)
}

type ResolverOptions struct {
	Strategy        string
	Tolerance       float64
	SampleLimit     int
	MaxPrefetchDays int
}

// NewDuplicateResolver builds the configured strategy.
func NewDuplicateResolver(gateway database.Gateway, opts ResolverOptions) (DuplicateResolver, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = processors.DefaultDedupTolerance
	}
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = DefaultSampleLimit
	}
	if opts.MaxPrefetchDays <= 0 {
		opts.MaxPrefetchDays = DefaultMaxPrefetchDays
	}
	prefetch := &PrefetchResolver{gateway: gateway, tolerance: opts.Tolerance, sampleLimit: opts.SampleLimit}
	perRecord := &PerRecordResolver{gateway: gateway, tolerance: opts.Tolerance, sampleLimit: opts.SampleLimit}

	switch strings.ToLower(strings.TrimSpace(opts.Strategy)) {
	case "", StrategyAuto:
		return &AutoResolver{prefetch: prefetch, perRecord: perRecord, maxSpanDays: opts.MaxPrefetchDays}, nil
	case StrategyPrefetch:
		return prefetch, nil
	case StrategyPerRecord:
		return perRecord, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
}

// PrefetchResolver reads every existing record in the batch's date span once
// and compares in memory.
type PrefetchResolver struct {
	gateway     database.Gateway
	tolerance   float64
	sampleLimit int
}

func (r *PrefetchResolver) Resolve(ctx context.Context, table TableSpec, candidates []models.Record) (processors.Resolution, error) {
	if len(candidates) == 0 {
		return processors.Resolution{}, nil
	}
	start, end := processors.DateSpan(candidates)
	rows, err := r.gateway.QueryRange(ctx, table.Name, table.DateColumn, start, end)
	if err != nil {
		return processors.Resolution{}, err
	}
	existing := make([]models.Record, len(rows))
	for i, row := range rows {
		existing[i] = table.Decode(row)
	}
	logger.FromContext(ctx).Debug("Prefetched existing records", "table", table.Name, "start", start, "end", end, "existing", len(existing))
	return processors.PartitionDuplicates(candidates, existing, r.tolerance, r.sampleLimit), nil
}

// PerRecordResolver asks the store about each candidate separately.
type PerRecordResolver struct {
	gateway     database.Gateway
	tolerance   float64
	sampleLimit int
}

func (r *PerRecordResolver) Resolve(ctx context.Context, table TableSpec, candidates []models.Record) (processors.Resolution, error) {
	var res processors.Resolution
	for _, c := range candidates {
		key := c.Key()
		row, err := r.gateway.QueryMatch(ctx, table.Name, key.MatchFields(r.tolerance))
		if err != nil {
			return processors.Resolution{}, err
		}
		// Re-check in memory so both strategies apply the same comparison.
		if row != nil && table.Decode(row).Key().Equal(key, r.tolerance) {
			res.Skip(c, r.sampleLimit)
			continue
		}
		res.ToPersist = append(res.ToPersist, c)
	}
	return res, nil
}

// AutoResolver prefetches when the batch spans a bounded date window and
// falls back to per-record checks otherwise.
type AutoResolver struct {
	prefetch    *PrefetchResolver
	perRecord   *PerRecordResolver
	maxSpanDays int
}

func (r *AutoResolver) Resolve(ctx context.Context, table TableSpec, candidates []models.Record) (processors.Resolution, error) {
	if len(candidates) == 0 {
		return processors.Resolution{}, nil
	}
	start, end := processors.DateSpan(candidates)
	days, err := utils.DaysBetween(start, end)
	if err != nil || days > r.maxSpanDays {
		logger.FromContext(ctx).Info("Using per-record duplicate checks", "start", start, "end", end, "maxSpanDays", r.maxSpanDays)
		return r.perRecord.Resolve(ctx, table, candidates)
	}
	return r.prefetch.Resolve(ctx, table, candidates)
}
