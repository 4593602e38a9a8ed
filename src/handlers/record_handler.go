// src/handlers/record_handler.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/security/validation"
	"github.com/kaibayosung/ohsung-system/src/services"
	"github.com/kaibayosung/ohsung-system/src/utils"
)

type RecordHandler struct {
	service services.RecordService
}

func NewRecordHandler(service services.RecordService) *RecordHandler {
	return &RecordHandler{service: service}
}

type monthListing struct {
	Domain  models.Domain   `json:"domain"`
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Count   int             `json:"count"`
	Records []models.Record `json:"records"`
}

// yearMonth reads ?year=&month=, defaulting to the current month.
func yearMonth(r *http.Request) (int, int, error) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if s := q.Get("year"); s != "" {
		y, err := validation.ValidateIntString(s, "year", 2000, 2100)
		if err != nil {
			return 0, 0, err
		}
		year = y
	}
	if s := q.Get("month"); s != "" {
		m, err := validation.ValidateIntString(s, "month", 1, 12)
		if err != nil {
			return 0, 0, err
		}
		month = m
	}
	return year, month, nil
}

func (h *RecordHandler) HandleListMonth(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}
	year, month, err := yearMonth(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctxLogger := logger.FromContext(r.Context())

	records, err := h.service.ListMonth(r.Context(), domain, year, month)
	if err != nil {
		ctxLogger.Error("Failed to list records", "domain", domain, "year", year, "month", month, "error", err)
		utils.SendJSONError(w, "Failed to list records", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.Record{}
	}
	listing := monthListing{Domain: domain, Year: year, Month: month, Count: len(records), Records: records}

	currentETag, etagErr := utils.GenerateETag(listing)
	if etagErr != nil {
		ctxLogger.Error("Failed to generate ETag for month listing", "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.SendJSON(w, http.StatusOK, listing)
}

func (h *RecordHandler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		utils.SendJSONError(w, "invalid record id", http.StatusBadRequest)
		return
	}
	deleted, err := h.service.DeleteRecord(r.Context(), domain, id)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to delete record", "domain", domain, "id", id, "error", err)
		utils.SendJSONError(w, "Failed to delete record", http.StatusInternalServerError)
		return
	}
	if !deleted {
		utils.SendJSONError(w, "record not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteMonth requires explicit year and month so a bare DELETE can
// never wipe the current month by accident.
func (h *RecordHandler) HandleDeleteMonth(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("year") == "" || q.Get("month") == "" {
		utils.SendJSONError(w, "year and month are required", http.StatusBadRequest)
		return
	}
	year, month, err := yearMonth(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := h.service.DeleteMonth(r.Context(), domain, year, month)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to delete month", "domain", domain, "year", year, "month", month, "error", err)
		utils.SendJSONError(w, "Failed to delete records", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
