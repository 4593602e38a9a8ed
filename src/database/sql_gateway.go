// src/database/sql_gateway.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kaibayosung/ohsung-system/src/models"
)

// SQLGateway is the Store over database/sql. It is used with the SQLite
// connection opened by InitDB.
type SQLGateway struct {
	db      *sql.DB
	dialect dialect
}

func NewSQLGateway(db *sql.DB) *SQLGateway {
	return &SQLGateway{db: db, dialect: sqliteDialect}
}

func (g *SQLGateway) QueryRange(ctx context.Context, table, dateColumn, start, end string) ([]models.Row, error) {
	if err := checkIdentifiers(table, dateColumn); err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, g.dialect.rangeQuery(table, dateColumn), start, end)
	if err != nil {
		return nil, fmt.Errorf("querying %s range %s..%s: %w", table, start, end, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (g *SQLGateway) QueryMatch(ctx context.Context, table string, keyFields models.Row) (models.Row, error) {
	if err := checkIdentifiers(table); err != nil {
		return nil, err
	}
	query, args, err := g.dialect.matchQuery(table, keyFields)
	if err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", table, err)
	}
	defer rows.Close()
	found, err := scanRows(rows)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// InsertBatch writes all rows in one transaction, so on error nothing from
// this call is stored and the returned count is zero.
func (g *SQLGateway) InsertBatch(ctx context.Context, table string, rows []models.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	columns := batchColumns(rows)
	if err := checkIdentifiers(append([]string{table}, columns...)...); err != nil {
		return 0, err
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, g.dialect.insertQuery(table, columns))
	if err != nil {
		return 0, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, rowArgs(r, columns)...); err != nil {
			return 0, fmt.Errorf("inserting row %d into %s: %w", i+1, table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing insert into %s: %w", table, err)
	}
	return len(rows), nil
}

func (g *SQLGateway) QueryRecent(ctx context.Context, table, orderColumn string, limit int) ([]models.Row, error) {
	if err := checkIdentifiers(table, orderColumn); err != nil {
		return nil, err
	}
	rows, err := g.db.QueryContext(ctx, g.dialect.recentQuery(table, orderColumn), limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent %s: %w", table, err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (g *SQLGateway) DeleteByID(ctx context.Context, table string, id int64) (bool, error) {
	if err := checkIdentifiers(table); err != nil {
		return false, err
	}
	res, err := g.db.ExecContext(ctx, g.dialect.deleteByIDQuery(table), id)
	if err != nil {
		return false, fmt.Errorf("deleting %s id %d: %w", table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *SQLGateway) DeleteRange(ctx context.Context, table, dateColumn, start, end string) (int, error) {
	if err := checkIdentifiers(table, dateColumn); err != nil {
		return 0, err
	}
	res, err := g.db.ExecContext(ctx, g.dialect.deleteRangeQuery(table, dateColumn), start, end)
	if err != nil {
		return 0, fmt.Errorf("deleting %s range %s..%s: %w", table, start, end, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func scanRows(rows *sql.Rows) ([]models.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []models.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		row := make(models.Row, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
