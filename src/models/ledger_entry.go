// src/models/ledger_entry.go
package models

import "fmt"

const (
	LedgerTable      = "daily_ledger"
	LedgerDateColumn = "trans_date"
)

// Direction is the cash flow direction of a ledger entry.
type Direction string

const (
	DirectionIncome  Direction = "수입"
	DirectionExpense Direction = "지출"
)

// SettlementMethod is how a ledger entry was paid.
type SettlementMethod string

const (
	MethodCash          SettlementMethod = "현금"
	MethodCorporateCard SettlementMethod = "법인카드"
	MethodOther         SettlementMethod = "기타"
	MethodTransfer      SettlementMethod = "이체"
)

// LedgerStatusDone is written for every pasted entry.
const LedgerStatusDone = "완료"

// LedgerEntry is one cash ledger line.
type LedgerEntry struct {
	ID           int64            `json:"id,omitempty"`
	Date         string           `json:"date"`
	Direction    Direction        `json:"direction"`
	Counterparty string           `json:"counterparty"`
	Description  string           `json:"description"`
	Amount       float64          `json:"amount"`
	Method       SettlementMethod `json:"method"`
}

func (e LedgerEntry) RecordDate() string { return e.Date }

// Key is (trans_date, company, amount, description).
func (e LedgerEntry) Key() DedupKey {
	return DedupKey{
		{Column: LedgerDateColumn, Text: e.Date},
		{Column: "company", Text: e.Counterparty},
		{Column: "amount", Number: e.Amount, Numeric: true},
		{Column: "description", Text: e.Description},
	}
}

func (e LedgerEntry) ToRow() Row {
	return Row{
		"trans_date":  e.Date,
		"type":        string(e.Direction),
		"company":     e.Counterparty,
		"description": e.Description,
		"amount":      e.Amount,
		"method":      string(e.Method),
		"status":      LedgerStatusDone,
	}
}

func (e LedgerEntry) Describe() string {
	return fmt.Sprintf("%s %s (%s원, %s)", e.Date, e.Counterparty, FormatAmount(e.Amount), e.Method)
}

func LedgerEntryFromRow(row Row) LedgerEntry {
	return LedgerEntry{
		ID:           RowInt64(row, "id"),
		Date:         RowDate(row, LedgerDateColumn),
		Direction:    Direction(RowString(row, "type")),
		Counterparty: RowString(row, "company"),
		Description:  RowString(row, "description"),
		Amount:       RowFloat(row, "amount"),
		Method:       SettlementMethod(RowString(row, "method")),
	}
}
