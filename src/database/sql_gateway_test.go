package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kaibayosung/ohsung-system/db"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteGateway(t *testing.T) *SQLGateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, RunMigrations(conn, path, db.Migrations, ""))
	return NewSQLGateway(conn)
}

func TestSQLGatewayRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)

	entry := models.WorkEntry{
		Date: "2026-01-10", CustomerName: "Acme", ItemLabel: "CoilA", ItemSpec: "5MM",
		CoilNumber: "CoilA", Weight: 1000, UnitPrice: 2000, TotalPrice: 2000000,
		Category: models.CategorySlitting1,
	}
	n, err := g.InsertBatch(ctx, models.WorkLogTable, []models.Row{
		entry.ToRow(),
		workRow("2026-01-11", "CoilB", 500),
		workRow("2026-02-01", "CoilC", 300),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := g.QueryRange(ctx, models.WorkLogTable, models.WorkLogDateColumn, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got := models.WorkEntryFromRow(rows[0])
	assert.NotZero(t, got.ID)
	got.ID = 0
	assert.Equal(t, entry, got)
}

func TestSQLGatewayQueryMatchWithTolerance(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)
	_, err := g.InsertBatch(ctx, models.WorkLogTable, []models.Row{workRow("2026-01-10", "CoilA", 1000)})
	require.NoError(t, err)

	key := models.WorkEntry{Date: "2026-01-10", CoilNumber: "CoilA", Weight: 1000.05}.Key()
	row, err := g.QueryMatch(ctx, models.WorkLogTable, key.MatchFields(1))
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "CoilA", row["coil_number"])

	key = models.WorkEntry{Date: "2026-01-10", CoilNumber: "CoilA", Weight: 1001.5}.Key()
	row, err = g.QueryMatch(ctx, models.WorkLogTable, key.MatchFields(1))
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSQLGatewayInsertIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)

	run := models.IngestionRun{RunID: "r1", Domain: models.DomainWorkLog, Status: "SAVED", CreatedAt: "2026-01-10T00:00:00Z"}
	n, err := g.InsertBatch(ctx, models.IngestionRunsTable, []models.Row{run.ToRow(), run.ToRow()})
	assert.Error(t, err, "run_id is unique")
	assert.Zero(t, n)

	rows, err := g.QueryRecent(ctx, models.IngestionRunsTable, "created_at", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLGatewayRecentAndDeletes(t *testing.T) {
	ctx := context.Background()
	g := newSQLiteGateway(t)

	for i, at := range []string{"2026-01-10T09:00:00Z", "2026-01-11T09:00:00Z"} {
		log := models.AccessLog{Email: "boss@ohsung.kr", IPAddress: "10.0.0.1", LoggedAt: at}
		_, err := g.InsertBatch(ctx, models.AccessLogsTable, []models.Row{log.ToRow()})
		require.NoError(t, err, "insert %d", i)
	}
	recent, err := g.QueryRecent(ctx, models.AccessLogsTable, "logged_at", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2026-01-11T09:00:00Z", models.AccessLogFromRow(recent[0]).LoggedAt)

	_, err = g.InsertBatch(ctx, models.LedgerTable, []models.Row{
		models.LedgerEntry{Date: "2026-01-10", Direction: models.DirectionIncome, Counterparty: "Acme", Amount: 1, Method: models.MethodCash}.ToRow(),
		models.LedgerEntry{Date: "2026-01-20", Direction: models.DirectionExpense, Counterparty: "Acme", Amount: 2, Method: models.MethodCash}.ToRow(),
	})
	require.NoError(t, err)

	rows, err := g.QueryRange(ctx, models.LedgerTable, models.LedgerDateColumn, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := models.LedgerEntryFromRow(rows[0])
	deleted, err := g.DeleteByID(ctx, models.LedgerTable, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	n, err := g.DeleteRange(ctx, models.LedgerTable, models.LedgerDateColumn, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.db")
	conn, err := OpenSQLite(path)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, RunMigrations(conn, path, db.Migrations, ""))
	require.NoError(t, RunMigrations(conn, path, db.Migrations, ""))
}

func TestSQLBuilderMatchQuery(t *testing.T) {
	q, args, err := postgresDialect.matchQuery("daily_ledger", models.Row{
		"company": "Acme",
		"amount":  models.Approx{Value: 10, Tolerance: 1},
		"memo":    nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM daily_ledger WHERE ABS(amount - $1) < $2 AND company = $3 AND memo IS NULL ORDER BY id LIMIT 1", q)
	assert.Equal(t, []any{10.0, 1.0, "Acme"}, args)

	_, _, err = sqliteDialect.matchQuery("daily_ledger", models.Row{"bad col": 1})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
