// src/models/work_entry.go
package models

import (
	"fmt"
	"strings"
)

// WorkLogTable is the store table holding work-log (production/sales) rows.
const (
	WorkLogTable      = "sales_records"
	WorkLogDateColumn = "work_date"
)

// ManagementNoSeparator joins item label and item spec into the single
// management_no column.
const ManagementNoSeparator = " | "

// WorkCategory is the canonical processing category of a work entry.
type WorkCategory string

const (
	CategorySlitting1 WorkCategory = "슬리팅 1"
	CategorySlitting2 WorkCategory = "슬리팅 2"
	CategoryLevelling WorkCategory = "레베링"
	CategoryOther     WorkCategory = "기타"
)

// WorkEntry is one coil processing job.
type WorkEntry struct {
	ID           int64        `json:"id,omitempty"`
	Date         string       `json:"date"`
	CustomerName string       `json:"customer_name"`
	ItemLabel    string       `json:"item_label"`
	ItemSpec     string       `json:"item_spec"`
	CoilNumber   string       `json:"coil_number"`
	Weight       float64      `json:"weight"`
	UnitPrice    float64      `json:"unit_price"`
	TotalPrice   float64      `json:"total_price"`
	Category     WorkCategory `json:"category"`
}

func (e WorkEntry) RecordDate() string { return e.Date }

// Key is (work_date, coil_number, weight).
func (e WorkEntry) Key() DedupKey {
	return DedupKey{
		{Column: WorkLogDateColumn, Text: e.Date},
		{Column: "coil_number", Text: e.CoilNumber},
		{Column: "weight", Number: e.Weight, Numeric: true},
	}
}

// ManagementNo is the denormalized descriptive column value.
func (e WorkEntry) ManagementNo() string {
	if e.ItemSpec == "" {
		return e.ItemLabel
	}
	return e.ItemLabel + ManagementNoSeparator + e.ItemSpec
}

func (e WorkEntry) ToRow() Row {
	return Row{
		"work_date":     e.Date,
		"customer_name": e.CustomerName,
		"management_no": e.ManagementNo(),
		"coil_number":   e.CoilNumber,
		"weight":        e.Weight,
		"unit_price":    e.UnitPrice,
		"total_price":   e.TotalPrice,
		"work_type":     string(e.Category),
	}
}

func (e WorkEntry) Describe() string {
	return fmt.Sprintf("%s %s (%skg)", e.Date, e.CoilNumber, FormatAmount(e.Weight))
}

// WorkEntryFromRow rebuilds an entry from a sales_records row. The label/spec
// split happens on the first separator only.
func WorkEntryFromRow(row Row) WorkEntry {
	label, spec, _ := strings.Cut(RowString(row, "management_no"), ManagementNoSeparator)
	return WorkEntry{
		ID:           RowInt64(row, "id"),
		Date:         RowDate(row, WorkLogDateColumn),
		CustomerName: RowString(row, "customer_name"),
		ItemLabel:    label,
		ItemSpec:     spec,
		CoilNumber:   RowString(row, "coil_number"),
		Weight:       RowFloat(row, "weight"),
		UnitPrice:    RowFloat(row, "unit_price"),
		TotalPrice:   RowFloat(row, "total_price"),
		Category:     WorkCategory(RowString(row, "work_type")),
	}
}
