// src/database/memory_gateway.go
package database

import (
	"context"
	"sort"
	"sync"

	"github.com/kaibayosung/ohsung-system/src/models"
)

// MemoryGateway is an in-process Store. Inserts are applied row by row, so an
// injected failure leaves a partial batch behind the way a non-transactional
// remote store can.
type MemoryGateway struct {
	mu     sync.RWMutex
	tables map[string][]models.Row
	nextID map[string]int64

	insertFailAfter int
	insertErr       error
	queryErr        error
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		tables:          make(map[string][]models.Row),
		nextID:          make(map[string]int64),
		insertFailAfter: -1,
	}
}

// FailInsertsAfter makes every following InsertBatch store n rows and then
// return err. A negative n disables the fault.
func (m *MemoryGateway) FailInsertsAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertFailAfter = n
	m.insertErr = err
}

// FailQueries makes every read return err until called with nil.
func (m *MemoryGateway) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// Rows returns a copy of a table's rows in insertion order.
func (m *MemoryGateway) Rows(table string) []models.Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Row, 0, len(m.tables[table]))
	for _, r := range m.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

func (m *MemoryGateway) QueryRange(ctx context.Context, table, dateColumn, start, end string) ([]models.Row, error) {
	if err := m.beginRead(ctx, table, dateColumn); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()

	var out []models.Row
	for _, r := range m.tables[table] {
		d := models.RowDate(r, dateColumn)
		if d >= start && d <= end {
			out = append(out, copyRow(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.RowDate(out[i], dateColumn) < models.RowDate(out[j], dateColumn)
	})
	return out, nil
}

func (m *MemoryGateway) QueryMatch(ctx context.Context, table string, keyFields models.Row) (models.Row, error) {
	if len(keyFields) == 0 {
		return nil, ErrEmptyMatch
	}
	if err := m.beginRead(ctx, append([]string{table}, sortedColumns(keyFields)...)...); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()

	for _, r := range m.tables[table] {
		if rowMatches(r, keyFields) {
			return copyRow(r), nil
		}
	}
	return nil, nil
}

func (m *MemoryGateway) InsertBatch(ctx context.Context, table string, rows []models.Row) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkIdentifiers(append([]string{table}, batchColumns(rows)...)...); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, r := range rows {
		if m.insertFailAfter >= 0 && inserted == m.insertFailAfter {
			return inserted, m.insertErr
		}
		m.nextID[table]++
		stored := copyRow(r)
		stored["id"] = m.nextID[table]
		m.tables[table] = append(m.tables[table], stored)
		inserted++
	}
	return inserted, nil
}

func (m *MemoryGateway) QueryRecent(ctx context.Context, table, orderColumn string, limit int) ([]models.Row, error) {
	if err := m.beginRead(ctx, table, orderColumn); err != nil {
		return nil, err
	}
	defer m.mu.RUnlock()

	rows := m.tables[table]
	out := make([]models.Row, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, copyRow(rows[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.RowString(out[i], orderColumn) > models.RowString(out[j], orderColumn)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryGateway) DeleteByID(ctx context.Context, table string, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table]
	for i, r := range rows {
		if models.RowInt64(r, "id") == id {
			m.tables[table] = append(rows[:i:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryGateway) DeleteRange(ctx context.Context, table, dateColumn, start, end string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tables[table][:0:0]
	removed := 0
	for _, r := range m.tables[table] {
		d := models.RowDate(r, dateColumn)
		if d >= start && d <= end {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return removed, nil
}

// beginRead validates the request and takes the read lock on success.
func (m *MemoryGateway) beginRead(ctx context.Context, identifiers ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkIdentifiers(identifiers...); err != nil {
		return err
	}
	m.mu.RLock()
	if m.queryErr != nil {
		err := m.queryErr
		m.mu.RUnlock()
		return err
	}
	return nil
}

func rowMatches(r models.Row, fields models.Row) bool {
	for col, want := range fields {
		switch w := want.(type) {
		case nil:
			if r[col] != nil {
				return false
			}
		case models.Approx:
			if !w.Matches(models.RowFloat(r, col)) {
				return false
			}
		case string:
			if models.RowString(r, col) != w {
				return false
			}
		case float64, float32, int, int32, int64:
			if models.RowFloat(r, col) != models.RowFloat(fields, col) {
				return false
			}
		default:
			if r[col] != want {
				return false
			}
		}
	}
	return true
}

func copyRow(r models.Row) models.Row {
	c := make(models.Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
