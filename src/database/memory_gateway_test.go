package database

import (
	"context"
	"errors"
	"testing"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workRow(date, coil string, weight float64) models.Row {
	return models.WorkEntry{Date: date, CoilNumber: coil, ItemLabel: coil, Weight: weight}.ToRow()
}

func TestMemoryGatewayRangeAndMatch(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	n, err := g.InsertBatch(ctx, models.WorkLogTable, []models.Row{
		workRow("2026-01-12", "C2", 200),
		workRow("2026-01-10", "C1", 100),
		workRow("2026-02-01", "C3", 300),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := g.QueryRange(ctx, models.WorkLogTable, models.WorkLogDateColumn, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "C1", rows[0]["coil_number"])
	assert.Equal(t, int64(2), rows[0]["id"])

	match, err := g.QueryMatch(ctx, models.WorkLogTable, models.Row{
		"work_date":   "2026-01-12",
		"coil_number": "C2",
		"weight":      models.Approx{Value: 200.5, Tolerance: 1},
	})
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "C2", match["coil_number"])

	match, err = g.QueryMatch(ctx, models.WorkLogTable, models.Row{"coil_number": "C9"})
	require.NoError(t, err)
	assert.Nil(t, match)

	_, err = g.QueryMatch(ctx, models.WorkLogTable, models.Row{})
	assert.ErrorIs(t, err, ErrEmptyMatch)
}

func TestMemoryGatewayRejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()

	_, err := g.QueryRange(ctx, "sales_records; drop", "work_date", "a", "b")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = g.InsertBatch(ctx, models.WorkLogTable, []models.Row{{"Weight": 1}})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestMemoryGatewayPartialInsert(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	boom := errors.New("connection reset")
	g.FailInsertsAfter(1, boom)

	n, err := g.InsertBatch(ctx, models.WorkLogTable, []models.Row{workRow("2026-01-10", "C1", 1), workRow("2026-01-10", "C2", 2)})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
	assert.Len(t, g.Rows(models.WorkLogTable), 1)

	g.FailInsertsAfter(-1, nil)
	n, err = g.InsertBatch(ctx, models.WorkLogTable, []models.Row{workRow("2026-01-10", "C2", 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryGatewayFailQueries(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	g.FailQueries(errors.New("offline"))
	_, err := g.QueryRange(ctx, models.WorkLogTable, models.WorkLogDateColumn, "2026-01-01", "2026-01-31")
	assert.EqualError(t, err, "offline")

	g.FailQueries(nil)
	_, err = g.QueryRange(ctx, models.WorkLogTable, models.WorkLogDateColumn, "2026-01-01", "2026-01-31")
	assert.NoError(t, err)
}

func TestMemoryGatewayDeletesAndRecent(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGateway()
	_, err := g.InsertBatch(ctx, models.WorkLogTable, []models.Row{
		workRow("2026-01-10", "C1", 1),
		workRow("2026-01-20", "C2", 2),
		workRow("2026-02-01", "C3", 3),
	})
	require.NoError(t, err)

	deleted, err := g.DeleteByID(ctx, models.WorkLogTable, 3)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = g.DeleteByID(ctx, models.WorkLogTable, 3)
	require.NoError(t, err)
	assert.False(t, deleted)

	recent, err := g.QueryRecent(ctx, models.WorkLogTable, models.WorkLogDateColumn, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "C2", recent[0]["coil_number"])

	n, err := g.DeleteRange(ctx, models.WorkLogTable, models.WorkLogDateColumn, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, g.Rows(models.WorkLogTable))
}
