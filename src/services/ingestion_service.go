// src/services/ingestion_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultSessionTTL = 8 * time.Hour
	DefaultRunsLimit  = 50
)

// DateInvalidator drops cached views that cover the given record dates.
type DateInvalidator interface {
	InvalidateDates(domain models.Domain, dates []string)
}

type ingestionServiceImpl struct {
	pipelines   map[models.Domain]*Pipeline
	store       database.Store
	sessions    *cache.Cache
	sessionsMu  sync.Mutex
	invalidator DateInvalidator
}

// NewIngestionService creates the ingestion service. sessionCache holds one
// IngestionSession per operator and domain; idle sessions expire with the
// cache's default TTL.
func NewIngestionService(pipelines []*Pipeline, store database.Store, sessionCache *cache.Cache, invalidator DateInvalidator) IngestionService {
	byDomain := make(map[models.Domain]*Pipeline, len(pipelines))
	for _, p := range pipelines {
		byDomain[p.Domain()] = p
	}
	return &ingestionServiceImpl{
		pipelines:   byDomain,
		store:       store,
		sessions:    sessionCache,
		invalidator: invalidator,
	}
}

func (s *ingestionServiceImpl) pipeline(domain models.Domain) (*Pipeline, error) {
	p, ok := s.pipelines[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", parsers.ErrUnknownDomain, domain)
	}
	return p, nil
}

func (s *ingestionServiceImpl) Analyze(domain models.Domain, raw string) (*models.Analysis, error) {
	p, err := s.pipeline(domain)
	if err != nil {
		return nil, err
	}
	return p.Analyze(raw)
}

// Ingest runs a whole paste → analyze → save cycle on a throwaway session.
func (s *ingestionServiceImpl) Ingest(ctx context.Context, operator string, domain models.Domain, raw string) (*models.IngestionResult, error) {
	p, err := s.pipeline(domain)
	if err != nil {
		return nil, err
	}
	session := newIngestionSession(operator, p, s.recordTerminal)
	if err := session.Paste(raw); err != nil {
		return nil, err
	}
	if _, err := session.Analyze(); err != nil {
		return nil, err
	}
	return session.Save(ctx)
}

func sessionKey(operator string, domain models.Domain) string {
	return fmt.Sprintf("session_%s_%s", domain, operator)
}

func (s *ingestionServiceImpl) Session(operator string, domain models.Domain) (*IngestionSession, error) {
	p, err := s.pipeline(domain)
	if err != nil {
		return nil, err
	}
	key := sessionKey(operator, domain)

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if cached, found := s.sessions.Get(key); found {
		if session, ok := cached.(*IngestionSession); ok {
			// Touch to extend the idle TTL.
			s.sessions.SetDefault(key, session)
			return session, nil
		}
	}
	session := newIngestionSession(operator, p, s.recordTerminal)
	s.sessions.SetDefault(key, session)
	logger.L.Debug("Created ingestion session", "operator", operator, "domain", domain)
	return session, nil
}

// recordTerminal writes the audit row for a finished run and invalidates the
// monthly views it may have changed. Failures here never change the outcome.
func (s *ingestionServiceImpl) recordTerminal(ctx context.Context, operator string, result models.IngestionResult, records []models.Record) {
	ctx = context.WithoutCancel(ctx)
	log := logger.ForRun(ctx, string(result.Domain), result.RunID)

	run := models.NewIngestionRun(result, operator, time.Now())
	if _, err := s.store.InsertBatch(ctx, models.IngestionRunsTable, []models.Row{run.ToRow()}); err != nil {
		log.Warn("Could not record ingestion run", "error", err)
	}

	if s.invalidator == nil || result.AcceptedCount == 0 {
		return
	}
	seen := make(map[string]struct{}, len(records))
	dates := make([]string, 0, len(records))
	for _, rec := range records {
		d := rec.RecordDate()
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	s.invalidator.InvalidateDates(result.Domain, dates)
}

func (s *ingestionServiceImpl) RecentRuns(ctx context.Context, limit int) ([]models.IngestionRun, error) {
	if limit <= 0 {
		limit = DefaultRunsLimit
	}
	rows, err := s.store.QueryRecent(ctx, models.IngestionRunsTable, "created_at", limit)
	if err != nil {
		return nil, fmt.Errorf("listing ingestion runs: %w", err)
	}
	runs := make([]models.IngestionRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, models.IngestionRunFromRow(row))
	}
	return runs, nil
}
