// src/database/gateway.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/security/validation"
)

var (
	ErrInvalidIdentifier = errors.New("invalid table or column name")
	ErrEmptyMatch        = errors.New("match requires at least one field")
)

// Gateway is everything the ingestion pipeline needs from a store.
type Gateway interface {
	// QueryRange returns rows whose dateColumn lies in [start, end] inclusive.
	QueryRange(ctx context.Context, table, dateColumn, start, end string) ([]models.Row, error)
	// QueryMatch returns one row matching every field, or nil. models.Approx
	// values match within their tolerance.
	QueryMatch(ctx context.Context, table string, keyFields models.Row) (models.Row, error)
	// InsertBatch appends rows and reports how many were written. The count is
	// best effort: on error some rows may or may not have been stored.
	InsertBatch(ctx context.Context, table string, rows []models.Row) (int, error)
}

// Store adds the record management and audit operations used outside the
// ingestion pipeline.
type Store interface {
	Gateway
	QueryRecent(ctx context.Context, table, orderColumn string, limit int) ([]models.Row, error)
	DeleteByID(ctx context.Context, table string, id int64) (bool, error)
	DeleteRange(ctx context.Context, table, dateColumn, start, end string) (int, error)
}

func checkIdentifiers(names ...string) error {
	for _, n := range names {
		if err := validation.ValidateSQLIdentifier(n); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, n)
		}
	}
	return nil
}
