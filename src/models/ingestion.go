// src/models/ingestion.go
package models

import (
	"fmt"
	"time"
)

// SessionState is a step of the paste → analyze → save workflow.
type SessionState string

const (
	StateEmpty    SessionState = "EMPTY"
	StatePasted   SessionState = "PASTED"
	StateAnalyzed SessionState = "ANALYZED"
	StateSaving   SessionState = "SAVING"
	StateSaved    SessionState = "SAVED"
	StateFailed   SessionState = "FAILED"
)

// RowRejection explains why a tokenized row did not become a record.
type RowRejection struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Analysis is the preview produced from one pasted block.
type Analysis struct {
	Domain     Domain         `json:"domain"`
	Records    []Record       `json:"records"`
	Rejections []RowRejection `json:"rejections,omitempty"`
	// DroppedRows counts rows dropped before a date could be resolved.
	DroppedRows int `json:"dropped_rows"`
}

// IngestionResult summarises one terminal run. It is never modified after it
// has been returned.
type IngestionResult struct {
	RunID          string       `json:"run_id"`
	Domain         Domain       `json:"domain"`
	Status         SessionState `json:"status"`
	AcceptedCount  int          `json:"accepted_count"`
	SkippedCount   int          `json:"skipped_count"`
	SkippedSamples []string     `json:"skipped_samples"`
	Error          string       `json:"error,omitempty"`
}

// Summary is the single message shown for a terminal state.
func (r IngestionResult) Summary() string {
	if r.Status == StateFailed {
		return fmt.Sprintf("저장 실패: %s (저장 %d건, 중복 제외 %d건). 다시 분석 후 재시도하세요.", r.Error, r.AcceptedCount, r.SkippedCount)
	}
	return fmt.Sprintf("저장 완료: %d건 (중복 제외 %d건)", r.AcceptedCount, r.SkippedCount)
}

// IngestionRunsTable keeps one row per terminal run.
const IngestionRunsTable = "ingestion_runs"

// IngestionRun is the audit view of a past IngestionResult.
type IngestionRun struct {
	RunID         string `json:"run_id"`
	Domain        Domain `json:"domain"`
	Operator      string `json:"operator"`
	Status        string `json:"status"`
	AcceptedCount int    `json:"accepted_count"`
	SkippedCount  int    `json:"skipped_count"`
	ErrorMessage  string `json:"error_message,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func NewIngestionRun(result IngestionResult, operator string, at time.Time) IngestionRun {
	return IngestionRun{
		RunID:         result.RunID,
		Domain:        result.Domain,
		Operator:      operator,
		Status:        string(result.Status),
		AcceptedCount: result.AcceptedCount,
		SkippedCount:  result.SkippedCount,
		ErrorMessage:  result.Error,
		CreatedAt:     at.UTC().Format(time.RFC3339),
	}
}

func (r IngestionRun) ToRow() Row {
	return Row{
		"run_id":         r.RunID,
		"domain":         string(r.Domain),
		"operator":       r.Operator,
		"status":         r.Status,
		"accepted_count": int64(r.AcceptedCount),
		"skipped_count":  int64(r.SkippedCount),
		"error_message":  r.ErrorMessage,
		"created_at":     r.CreatedAt,
	}
}

func IngestionRunFromRow(row Row) IngestionRun {
	return IngestionRun{
		RunID:         RowString(row, "run_id"),
		Domain:        Domain(RowString(row, "domain")),
		Operator:      RowString(row, "operator"),
		Status:        RowString(row, "status"),
		AcceptedCount: int(RowInt64(row, "accepted_count")),
		SkippedCount:  int(RowInt64(row, "skipped_count")),
		ErrorMessage:  RowString(row, "error_message"),
		CreatedAt:     RowString(row, "created_at"),
	}
}
