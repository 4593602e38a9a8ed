package ledger

import (
	"testing"

	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFansOutAmountColumns(t *testing.T) {
	raw := "날자\t거래처\t적요\t비고\t현금수입\t현금지출\t법인카드\t기타\n" +
		"2026-01-10\tAcme\t코일대금\t\t1,500,000\t\t\t\n" +
		"\t주유소\t주유\t\t\t\t80,000\t\n" +
		"\t식당\t식대\t\t\t12,000\t\t3,000\n" +
		"지출계\t\t\t\t\t12,000\t80,000\t3,000\n"

	analysis, err := NewParser(Options{}).Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 4)

	first := analysis.Records[0].(models.LedgerEntry)
	assert.Equal(t, "2026-01-10", first.Date)
	assert.Equal(t, models.DirectionIncome, first.Direction)
	assert.Equal(t, models.MethodCash, first.Method)
	assert.Equal(t, 1500000.0, first.Amount)
	assert.Equal(t, "코일대금", first.Description)

	card := analysis.Records[1].(models.LedgerEntry)
	assert.Equal(t, "2026-01-10", card.Date)
	assert.Equal(t, models.MethodCorporateCard, card.Method)
	assert.Equal(t, models.DirectionExpense, card.Direction)

	assert.Equal(t, models.MethodCash, analysis.Records[2].(models.LedgerEntry).Method)
	assert.Equal(t, models.MethodOther, analysis.Records[3].(models.LedgerEntry).Method)
}

func TestParseRowWithoutAmount(t *testing.T) {
	raw := "2026-01-10\tAcme\t메모\t\t\t\t\t\n" +
		"2026-01-10\tAcme\t입금\t\t1,000\n"
	analysis, err := NewParser(Options{}).Parse(raw)
	require.NoError(t, err)
	require.Len(t, analysis.Records, 1)
	require.Len(t, analysis.Rejections, 1)
	assert.Equal(t, "no amount", analysis.Rejections[0].Reason)
}

func TestParseNoiseOnly(t *testing.T) {
	analysis, err := NewParser(Options{}).Parse("날자\t거래처\t적요\t비고\t수입\n\n")
	assert.ErrorIs(t, err, tabular.ErrNoParsableRows)
	require.NotNil(t, analysis)
	assert.Empty(t, analysis.Records)
}
