// src/services/access_log_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/models"
)

const DefaultAccessLogLimit = 100

type accessLogServiceImpl struct {
	store database.Store
}

func NewAccessLogService(store database.Store) AccessLogService {
	return &accessLogServiceImpl{store: store}
}

func (s *accessLogServiceImpl) Record(ctx context.Context, email, ipAddress string) error {
	entry := models.NewAccessLog(email, ipAddress, time.Now())
	if _, err := s.store.InsertBatch(ctx, models.AccessLogsTable, []models.Row{entry.ToRow()}); err != nil {
		return fmt.Errorf("recording access log for %s: %w", email, err)
	}
	return nil
}

func (s *accessLogServiceImpl) Latest(ctx context.Context, limit int) ([]models.AccessLog, error) {
	if limit <= 0 || limit > DefaultAccessLogLimit {
		limit = DefaultAccessLogLimit
	}
	rows, err := s.store.QueryRecent(ctx, models.AccessLogsTable, "logged_at", limit)
	if err != nil {
		return nil, fmt.Errorf("listing access logs: %w", err)
	}
	logs := make([]models.AccessLog, 0, len(rows))
	for _, row := range rows {
		logs = append(logs, models.AccessLogFromRow(row))
	}
	return logs, nil
}
