package services

import (
	"context"
	"sync"
	"testing"

	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers"
	"github.com/kaibayosung/ohsung-system/src/processors"
	"github.com/stretchr/testify/require"
)

const exampleWorkLog = "2026-01-10\tAcme\tCoilA\t5MM\t1,000\t2,000\t2,000,000\tTYPE-2\n" +
	"\tAcme\tCoilB\t5MM\t500\t2,000\t1,000,000\tTYPE-2\n"

const dedupWorkLog = "2026-01-10\tAcme\tCoilA\t5MM\t1,000\t2,000\t2,000,000\tTYPE-2\n" +
	"\tAcme\tCoilC\t5MM\t300\t2,000\t600,000\tTYPE\n"

func testParserOptions(t *testing.T) parsers.Options {
	t.Helper()
	classifier, err := processors.NewCategoryClassifier(processors.CategoryRuleSet{
		Rules: []processors.CategoryRule{
			{Keyword: "TYPE-2", Category: "type-2"},
			{Keyword: "TYPE", Category: "type-1"},
		},
		Default: "other",
	})
	require.NoError(t, err)
	return parsers.Options{Classifier: classifier}
}

func newTestPipelines(t *testing.T, gw database.Gateway, strategy string) map[models.Domain]*Pipeline {
	t.Helper()
	resolver, err := NewDuplicateResolver(gw, ResolverOptions{Strategy: strategy})
	require.NoError(t, err)
	list, err := BuildPipelines(gw, resolver, testParserOptions(t))
	require.NoError(t, err)
	out := make(map[models.Domain]*Pipeline, len(list))
	for _, p := range list {
		out[p.Domain()] = p
	}
	return out
}

func seedWork(t *testing.T, gw database.Gateway, entries ...models.WorkEntry) {
	t.Helper()
	rows := make([]models.Row, len(entries))
	for i, e := range entries {
		rows[i] = e.ToRow()
	}
	_, err := gw.InsertBatch(context.Background(), models.WorkLogTable, rows)
	require.NoError(t, err)
}

// countingGateway records which read path a resolver used.
type countingGateway struct {
	database.Gateway
	mu      sync.Mutex
	ranges  int
	matches int
}

func (g *countingGateway) QueryRange(ctx context.Context, table, dateColumn, start, end string) ([]models.Row, error) {
	g.mu.Lock()
	g.ranges++
	g.mu.Unlock()
	return g.Gateway.QueryRange(ctx, table, dateColumn, start, end)
}

func (g *countingGateway) QueryMatch(ctx context.Context, table string, keyFields models.Row) (models.Row, error) {
	g.mu.Lock()
	g.matches++
	g.mu.Unlock()
	return g.Gateway.QueryMatch(ctx, table, keyFields)
}

// blockingGateway parks the first read until release is closed.
type blockingGateway struct {
	database.Gateway
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingGateway(inner database.Gateway) *blockingGateway {
	return &blockingGateway{Gateway: inner, started: make(chan struct{}), release: make(chan struct{})}
}

func (g *blockingGateway) QueryRange(ctx context.Context, table, dateColumn, start, end string) ([]models.Row, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.Gateway.QueryRange(ctx, table, dateColumn, start, end)
}
