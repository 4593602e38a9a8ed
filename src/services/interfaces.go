// src/services/interfaces.go
package services

import (
	"context"
	"errors"

	"github.com/kaibayosung/ohsung-system/src/models"
)

// Define common service errors
var (
	ErrResolutionFailed  = errors.New("duplicate check failed")
	ErrPersistenceFailed = errors.New("saving records failed")
	ErrSaveInProgress    = errors.New("save already in progress")
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	ErrUnknownStrategy   = errors.New("unknown dedup strategy")
)

// IngestionService drives paste ingestion for every domain.
type IngestionService interface {
	// Analyze previews a pasted block without touching the store.
	Analyze(domain models.Domain, raw string) (*models.Analysis, error)
	// Ingest runs paste, analyze and save in one call.
	Ingest(ctx context.Context, operator string, domain models.Domain, raw string) (*models.IngestionResult, error)
	// Session returns the operator's interactive session for a domain.
	Session(operator string, domain models.Domain) (*IngestionSession, error)
	RecentRuns(ctx context.Context, limit int) ([]models.IngestionRun, error)
}

// RecordService lists and deletes stored records month by month.
type RecordService interface {
	ListMonth(ctx context.Context, domain models.Domain, year, month int) ([]models.Record, error)
	DeleteRecord(ctx context.Context, domain models.Domain, id int64) (bool, error)
	DeleteMonth(ctx context.Context, domain models.Domain, year, month int) (int, error)
	InvalidateDates(domain models.Domain, dates []string)
}

// AccessLogService keeps the login audit trail.
type AccessLogService interface {
	Record(ctx context.Context, email, ipAddress string) error
	Latest(ctx context.Context, limit int) ([]models.AccessLog, error)
}
