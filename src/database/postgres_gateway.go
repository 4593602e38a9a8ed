// src/database/postgres_gateway.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kaibayosung/ohsung-system/src/models"
)

// PostgresGateway is the Store over a hosted Postgres database. The schema is
// owned by the hosting project, so no migrations run against it.
type PostgresGateway struct {
	pool    *pgxpool.Pool
	dialect dialect
}

func NewPostgresGateway(ctx context.Context, databaseURL string) (*PostgresGateway, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresGateway{pool: pool, dialect: postgresDialect}, nil
}

func (g *PostgresGateway) Close() { g.pool.Close() }

func (g *PostgresGateway) QueryRange(ctx context.Context, table, dateColumn, start, end string) ([]models.Row, error) {
	if err := checkIdentifiers(table, dateColumn); err != nil {
		return nil, err
	}
	rows, err := g.pool.Query(ctx, g.dialect.rangeQuery(table, dateColumn), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying %s range %s..%s: %w", table, start, end, err)
	}
	return collectPgRows(rows)
}

func (g *PostgresGateway) QueryMatch(ctx context.Context, table string, keyFields models.Row) (models.Row, error) {
	if err := checkIdentifiers(table); err != nil {
		return nil, err
	}
	query, args, err := g.dialect.matchQuery(table, keyFields)
	if err != nil {
		return nil, err
	}
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", table, err)
	}
	found, err := collectPgRows(rows)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// InsertBatch queues every insert in one pgx batch inside a transaction.
func (g *PostgresGateway) InsertBatch(ctx context.Context, table string, rows []models.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	columns := batchColumns(rows)
	if err := checkIdentifiers(append([]string{table}, columns...)...); err != nil {
		return 0, err
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := g.dialect.insertQuery(table, columns)
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query, rowArgs(r, columns)...)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("inserting row %d into %s: %w", i+1, table, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("error committing insert into %s: %w", table, err)
	}
	return len(rows), nil
}

func (g *PostgresGateway) QueryRecent(ctx context.Context, table, orderColumn string, limit int) ([]models.Row, error) {
	if err := checkIdentifiers(table, orderColumn); err != nil {
		return nil, err
	}
	rows, err := g.pool.Query(ctx, g.dialect.recentQuery(table, orderColumn), limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent %s: %w", table, err)
	}
	return collectPgRows(rows)
}

func (g *PostgresGateway) DeleteByID(ctx context.Context, table string, id int64) (bool, error) {
	if err := checkIdentifiers(table); err != nil {
		return false, err
	}
	tag, err := g.pool.Exec(ctx, g.dialect.deleteByIDQuery(table), id)
	if err != nil {
		return false, fmt.Errorf("deleting %s id %d: %w", table, id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (g *PostgresGateway) DeleteRange(ctx context.Context, table, dateColumn, start, end string) (int, error) {
	if err := checkIdentifiers(table, dateColumn); err != nil {
		return 0, err
	}
	tag, err := g.pool.Exec(ctx, g.dialect.deleteRangeQuery(table, dateColumn), start, end)
	if err != nil {
		return 0, fmt.Errorf("deleting %s range %s..%s: %w", table, start, end, err)
	}
	return int(tag.RowsAffected()), nil
}

func collectPgRows(rows pgx.Rows) ([]models.Row, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	var out []models.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		row := make(models.Row, len(fields))
		for i, f := range fields {
			row[f.Name] = normalizePgValue(values[i], f.DataTypeOID)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizePgValue maps numeric and date values onto the plain Go types the
// record decoders expect.
func normalizePgValue(v any, oid uint32) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		if oid == pgtype.DateOID {
			return t.Format("2006-01-02")
		}
		return t.UTC().Format(time.RFC3339)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	}
	return v
}
