// src/processors/record_builder.go
package processors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/security/validation"
)

var ErrSeparatorCollision = errors.New("item label contains the management_no separator")

// WorkFields is a normalized work-log row before classification.
type WorkFields struct {
	Date         string
	CustomerName string
	ItemLabel    string
	ItemSpec     string
	CoilNumber   string
	Weight       float64
	UnitPrice    float64
	TotalPrice   float64
	CategoryCode string
}

// LedgerFields is a normalized ledger row. Each non-zero amount column
// becomes its own ledger entry.
type LedgerFields struct {
	Date         string
	Counterparty string
	Description  string
	CashIncome   float64
	CashExpense  float64
	CardExpense  float64
	OtherExpense float64
}

// RecordBuilder assembles canonical records from normalized fields.
type RecordBuilder struct {
	strict bool
}

func NewRecordBuilder(strict bool) *RecordBuilder {
	return &RecordBuilder{strict: strict}
}

// BuildWorkEntry assembles a work entry. The item-spec half of management_no may
// contain the separator because reads split on the first one; the label may not.
func (b *RecordBuilder) BuildWorkEntry(f WorkFields, category models.WorkCategory) (models.WorkEntry, error) {
	entry := models.WorkEntry{
		Date:         f.Date,
		CustomerName: cleanText(f.CustomerName),
		ItemLabel:    cleanText(f.ItemLabel),
		ItemSpec:     cleanText(f.ItemSpec),
		CoilNumber:   cleanText(f.CoilNumber),
		Weight:       f.Weight,
		UnitPrice:    f.UnitPrice,
		TotalPrice:   f.TotalPrice,
		Category:     category,
	}
	if strings.Contains(entry.ItemLabel, models.ManagementNoSeparator) {
		if b.strict {
			return models.WorkEntry{}, fmt.Errorf("%w: %q", ErrSeparatorCollision, entry.ItemLabel)
		}
		logger.L.Warn("Item label contains management_no separator, stored value will not split back cleanly",
			"date", entry.Date, "coilNumber", entry.CoilNumber, "itemLabel", entry.ItemLabel)
	}
	return entry, nil
}

// BuildLedgerEntries fans one ledger row out into up to four entries.
func (b *RecordBuilder) BuildLedgerEntries(f LedgerFields) []models.LedgerEntry {
	counterparty := cleanText(f.Counterparty)
	description := cleanText(f.Description)

	columns := []struct {
		amount    float64
		direction models.Direction
		method    models.SettlementMethod
	}{
		{f.CashIncome, models.DirectionIncome, models.MethodCash},
		{f.CashExpense, models.DirectionExpense, models.MethodCash},
		{f.CardExpense, models.DirectionExpense, models.MethodCorporateCard},
		{f.OtherExpense, models.DirectionExpense, models.MethodOther},
	}

	var entries []models.LedgerEntry
	for _, c := range columns {
		if c.amount <= 0 {
			continue
		}
		entries = append(entries, models.LedgerEntry{
			Date:         f.Date,
			Direction:    c.direction,
			Counterparty: counterparty,
			Description:  description,
			Amount:       c.amount,
			Method:       c.method,
		})
	}
	return entries
}

func cleanText(s string) string {
	return strings.TrimSpace(validation.SanitizePlainText(s))
}
