// src/services/record_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/utils"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type recordServiceImpl struct {
	store      database.Store
	monthCache *cache.Cache
}

// NewRecordService creates the monthly record listing service. Listings are
// cached per domain and month until an ingestion or delete touches that month.
func NewRecordService(store database.Store, monthCache *cache.Cache) RecordService {
	return &recordServiceImpl{store: store, monthCache: monthCache}
}

func monthCacheKey(domain models.Domain, year, month int) string {
	return fmt.Sprintf("records_%s_%04d_%02d", domain, year, month)
}

func (s *recordServiceImpl) ListMonth(ctx context.Context, domain models.Domain, year, month int) ([]models.Record, error) {
	table, err := TableSpecFor(domain)
	if err != nil {
		return nil, err
	}
	start, end, err := utils.MonthRange(year, month)
	if err != nil {
		return nil, err
	}

	cacheKey := monthCacheKey(domain, year, month)
	if cached, found := s.monthCache.Get(cacheKey); found {
		if records, ok := cached.([]models.Record); ok {
			logger.FromContext(ctx).Debug("Month listing served from cache", "key", cacheKey)
			return records, nil
		}
	}

	rows, err := s.store.QueryRange(ctx, table.Name, table.DateColumn, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing %s records for %04d-%02d: %w", domain, year, month, err)
	}
	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, table.Decode(row))
	}
	s.monthCache.Set(cacheKey, records, DefaultCacheExpiration)
	return records, nil
}

// DeleteRecord removes one record by id. The month it belonged to is not
// known here, so every cached listing of the domain is dropped.
func (s *recordServiceImpl) DeleteRecord(ctx context.Context, domain models.Domain, id int64) (bool, error) {
	table, err := TableSpecFor(domain)
	if err != nil {
		return false, err
	}
	deleted, err := s.store.DeleteByID(ctx, table.Name, id)
	if err != nil {
		return false, fmt.Errorf("deleting %s record %d: %w", domain, id, err)
	}
	if deleted {
		s.invalidateDomain(domain)
		logger.FromContext(ctx).Info("Record deleted", "domain", domain, "id", id)
	}
	return deleted, nil
}

func (s *recordServiceImpl) DeleteMonth(ctx context.Context, domain models.Domain, year, month int) (int, error) {
	table, err := TableSpecFor(domain)
	if err != nil {
		return 0, err
	}
	start, end, err := utils.MonthRange(year, month)
	if err != nil {
		return 0, err
	}
	n, err := s.store.DeleteRange(ctx, table.Name, table.DateColumn, start, end)
	if err != nil {
		return 0, fmt.Errorf("deleting %s records for %04d-%02d: %w", domain, year, month, err)
	}
	s.monthCache.Delete(monthCacheKey(domain, year, month))
	logger.FromContext(ctx).Info("Month deleted", "domain", domain, "year", year, "month", month, "rows", n)
	return n, nil
}

func (s *recordServiceImpl) InvalidateDates(domain models.Domain, dates []string) {
	for _, d := range dates {
		t, err := time.Parse(utils.DefaultDateFormat, d)
		if err != nil {
			continue
		}
		s.monthCache.Delete(monthCacheKey(domain, t.Year(), int(t.Month())))
	}
}

func (s *recordServiceImpl) invalidateDomain(domain models.Domain) {
	prefix := fmt.Sprintf("records_%s_", domain)
	for key := range s.monthCache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.monthCache.Delete(key)
		}
	}
}
