package worklog

import (
	"encoding/json"
	"testing"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers/tabular"
	"github.com/kaibayosung/ohsung-system/src/processors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeClassifier(t *testing.T) *processors.CategoryClassifier {
	t.Helper()
	c, err := processors.NewCategoryClassifier(processors.CategoryRuleSet{
		Rules: []processors.CategoryRule{
			{Keyword: "TYPE-2", Category: "type-2"},
			{Keyword: "TYPE", Category: "type-1"},
		},
		Default: "other",
	})
	require.NoError(t, err)
	return c
}

func TestParseCarriesDateAndClassifies(t *testing.T) {
	p, err := NewParser(Options{Classifier: typeClassifier(t)})
	require.NoError(t, err)

	raw := "2026-01-10\tAcme\tCoilA\t5MM\t1,000\t2,000\t2,000,000\tTYPE-2\n" +
		"\tAcme\tCoilB\t5MM\t500\t2,000\t1,000,000\tTYPE-2\n"
	analysis, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 2)
	assert.Equal(t, models.DomainWorkLog, analysis.Domain)

	for _, rec := range analysis.Records {
		e := rec.(models.WorkEntry)
		assert.Equal(t, "2026-01-10", e.Date)
		assert.Equal(t, models.WorkCategory("type-2"), e.Category)
	}
	second := analysis.Records[1].(models.WorkEntry)
	assert.Equal(t, "CoilB", second.CoilNumber)
	assert.Equal(t, 500.0, second.Weight)
	assert.Equal(t, 1000000.0, second.TotalPrice)
	assert.Equal(t, "CoilB | 5MM", second.ManagementNo())
}

func TestParseHeaderOnly(t *testing.T) {
	p, err := NewParser(Options{})
	require.NoError(t, err)

	analysis, err := p.Parse("생산일자\t거래처\t품명\t규격\t중량\t단가\t금액\t구분\n\n\n")
	assert.ErrorIs(t, err, tabular.ErrNoParsableRows)
	require.NotNil(t, analysis)
	assert.Empty(t, analysis.Records)
}

func TestParseBlankInput(t *testing.T) {
	p, err := NewParser(Options{})
	require.NoError(t, err)
	_, err = p.Parse("  \n ")
	assert.ErrorIs(t, err, tabular.ErrNoInput)
}

func TestParseDropsRowsBeforeFirstDate(t *testing.T) {
	p, err := NewParser(Options{})
	require.NoError(t, err)

	raw := "\tAcme\tCoilZ\t5MM\t100\n" +
		"2026-01-11\tAcme\tCoilA\t5MM\t200\n"
	analysis, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, analysis.DroppedRows)
	require.Len(t, analysis.Records, 1)
	assert.Equal(t, models.CategoryOther, analysis.Records[0].(models.WorkEntry).Category)
}

func TestParseStrictRejectsBadNumbers(t *testing.T) {
	raw := "2026-01-10\tAcme\tCoilA\t5MM\tabc\t2,000\t2,000,000\tTYPE-2\n" +
		"2026-01-10\tAcme\tCoilB\t5MM\t500\t2,000\t1,000,000\tTYPE-2\n"

	strict, err := NewParser(Options{Strict: true})
	require.NoError(t, err)
	analysis, err := strict.Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 1)
	require.Len(t, analysis.Rejections, 1)
	assert.Equal(t, 1, analysis.Rejections[0].Line)

	lenient, err := NewParser(Options{})
	require.NoError(t, err)
	analysis, err = lenient.Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 2)
	assert.Zero(t, analysis.Records[0].(models.WorkEntry).Weight)
}

func TestParseExponentWeightNeverReachesRecords(t *testing.T) {
	raw := "2026-01-10\tAcme\tCoilA\t5MM\t1e400\t2,000\t2,000,000\tTYPE-2\n" +
		"2026-01-10\tAcme\tCoilB\t5MM\t500\t2,000\t1,000,000\tTYPE-2\n"

	strict, err := NewParser(Options{Strict: true})
	require.NoError(t, err)
	analysis, err := strict.Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 1)
	require.Len(t, analysis.Rejections, 1)
	assert.Equal(t, "CoilB", analysis.Records[0].(models.WorkEntry).CoilNumber)

	lenient, err := NewParser(Options{})
	require.NoError(t, err)
	analysis, err = lenient.Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 2)
	assert.Zero(t, analysis.Records[0].(models.WorkEntry).Weight)

	_, err = json.Marshal(analysis)
	assert.NoError(t, err)
}
