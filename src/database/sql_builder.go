// src/database/sql_builder.go
package database

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaibayosung/ohsung-system/src/models"
)

// dialect differs between SQLite ("?") and Postgres ("$1") placeholders.
type dialect struct {
	placeholder func(n int) string
}

var (
	sqliteDialect   = dialect{placeholder: func(int) string { return "?" }}
	postgresDialect = dialect{placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}
)

func (d dialect) rangeQuery(table, dateColumn string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE %s >= %s AND %s <= %s ORDER BY %s, id",
		table, dateColumn, d.placeholder(1), dateColumn, d.placeholder(2), dateColumn)
}

func (d dialect) deleteRangeQuery(table, dateColumn string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s >= %s AND %s <= %s",
		table, dateColumn, d.placeholder(1), dateColumn, d.placeholder(2))
}

func (d dialect) recentQuery(table, orderColumn string) string {
	return fmt.Sprintf("SELECT * FROM %s ORDER BY %s DESC, id DESC LIMIT %s", table, orderColumn, d.placeholder(1))
}

func (d dialect) deleteByIDQuery(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, d.placeholder(1))
}

// matchQuery builds a single-row lookup. Columns are sorted so the same field
// map always yields the same statement.
func (d dialect) matchQuery(table string, fields models.Row) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, ErrEmptyMatch
	}
	columns := sortedColumns(fields)
	if err := checkIdentifiers(columns...); err != nil {
		return "", nil, err
	}

	var (
		conds []string
		args  []any
	)
	for _, col := range columns {
		switch v := fields[col].(type) {
		case nil:
			conds = append(conds, col+" IS NULL")
		case models.Approx:
			conds = append(conds, fmt.Sprintf("ABS(%s - %s) < %s", col, d.placeholder(len(args)+1), d.placeholder(len(args)+2)))
			args = append(args, v.Value, v.Tolerance)
		default:
			conds = append(conds, fmt.Sprintf("%s = %s", col, d.placeholder(len(args)+1)))
			args = append(args, v)
		}
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY id LIMIT 1", table, strings.Join(conds, " AND "))
	return query, args, nil
}

func (d dialect) insertQuery(table string, columns []string) string {
	phs := make([]string, len(columns))
	for i := range columns {
		phs[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(phs, ", "))
}

// batchColumns is the sorted union of the rows' keys.
func batchColumns(rows []models.Row) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

func sortedColumns(r models.Row) []string {
	columns := make([]string, 0, len(r))
	for k := range r {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

func rowArgs(r models.Row, columns []string) []any {
	args := make([]any, len(columns))
	for i, c := range columns {
		args[i] = r[c]
	}
	return args
}
