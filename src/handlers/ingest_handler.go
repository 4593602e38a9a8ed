// src/handlers/ingest_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/models"
	"github.com/kaibayosung/ohsung-system/src/parsers"
	"github.com/kaibayosung/ohsung-system/src/security/validation"
	"github.com/kaibayosung/ohsung-system/src/services"
	"github.com/kaibayosung/ohsung-system/src/utils"
)

type IngestHandler struct {
	service        services.IngestionService
	maxUploadBytes int64
}

func NewIngestHandler(service services.IngestionService, maxUploadBytes int64) *IngestHandler {
	return &IngestHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// pasteRequest carries either plain clipboard text or the clipboard's HTML
// flavour when the browser offers one.
type pasteRequest struct {
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

type ingestErrorBody struct {
	Error    string                  `json:"error"`
	Analysis *models.Analysis        `json:"analysis,omitempty"`
	Result   *models.IngestionResult `json:"result,omitempty"`
}

func domainParam(w http.ResponseWriter, r *http.Request) (models.Domain, bool) {
	domain, ok := models.ParseDomain(chi.URLParam(r, "domain"))
	if !ok {
		utils.SendJSONError(w, fmt.Sprintf("unknown domain %q", chi.URLParam(r, "domain")), http.StatusNotFound)
		return "", false
	}
	return domain, true
}

func operatorOrReject(w http.ResponseWriter, r *http.Request) (string, bool) {
	operator, ok := GetOperatorFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
	}
	return operator, ok
}

// ingestStatus maps pipeline errors onto HTTP statuses.
func ingestStatus(err error) int {
	switch {
	case errors.Is(err, parsers.ErrNoInput),
		errors.Is(err, parsers.ErrNoParsableRows),
		errors.Is(err, parsers.ErrNoTable),
		errors.Is(err, validation.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, parsers.ErrUnknownDomain):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSaveInProgress),
		errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrResolutionFailed),
		errors.Is(err, services.ErrPersistenceFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func sendIngestError(w http.ResponseWriter, r *http.Request, err error, analysis *models.Analysis, result *models.IngestionResult) {
	status := ingestStatus(err)
	ctxLogger := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		ctxLogger.Error("Ingestion request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		ctxLogger.Warn("Ingestion request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	utils.SendJSON(w, status, ingestErrorBody{Error: err.Error(), Analysis: analysis, Result: result})
}

// readPaste decodes a JSON paste body, converting spreadsheet HTML to
// tab-delimited text when needed.
func (h *IngestHandler) readPaste(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	var req pasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", fmt.Errorf("%w: invalid request body: %v", validation.ErrValidationFailed, err)
	}

	text := req.Text
	switch {
	case strings.TrimSpace(req.HTML) != "":
		converted, err := parsers.HTMLTableToText(strings.NewReader(req.HTML))
		if err == nil {
			text = converted
		} else if strings.TrimSpace(req.Text) == "" {
			return "", err
		}
	case parsers.LooksLikeHTMLTable(text):
		converted, err := parsers.HTMLTableToText(strings.NewReader(text))
		if err != nil {
			return "", err
		}
		text = converted
	}

	if err := validation.ValidatePastedText(text); err != nil {
		return "", err
	}
	return text, nil
}

// readUpload turns an uploaded .xlsx, .csv, .txt or saved HTML table into a
// pasted block.
func (h *IngestHandler) readUpload(r *http.Request) (string, error) {
	ctxLogger := logger.FromContext(r.Context())
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return "", fmt.Errorf("%w: upload too large or malformed (max %d MB)", validation.ErrValidationFailed, h.maxUploadBytes/(1024*1024))
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("%w: missing 'file' field", validation.ErrValidationFailed)
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadBytes {
		return "", fmt.Errorf("%w: file too large", validation.ErrValidationFailed)
	}
	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		return "", err
	}
	detected, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		return "", err
	}
	ctxLogger.Info("Upload validated", "filename", fileHeader.Filename, "detectedType", detected)

	var text string
	switch detected {
	case validation.DetectedZip:
		text, err = parsers.WorkbookToText(file)
	case "text/html":
		text, err = parsers.HTMLTableToText(file)
	default:
		var b []byte
		b, err = io.ReadAll(file)
		text = string(b)
	}
	if err != nil {
		return "", err
	}
	if err := validation.ValidatePastedText(text); err != nil {
		return "", err
	}
	return text, nil
}

// HandleAnalyze previews a pasted block without a session or store access.
func (h *IngestHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}
	text, err := h.readPaste(w, r)
	if err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	analysis, err := h.service.Analyze(domain, text)
	if err != nil {
		sendIngestError(w, r, err, analysis, nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, analysis)
}

// HandleIngest runs paste, analyze and save in one request.
func (h *IngestHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainParam(w, r)
	if !ok {
		return
	}
	operator, ok := operatorOrReject(w, r)
	if !ok {
		return
	}
	text, err := h.readPaste(w, r)
	if err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	result, err := h.service.Ingest(r.Context(), operator, domain, text)
	if err != nil {
		sendIngestError(w, r, err, nil, result)
		return
	}
	utils.SendJSON(w, http.StatusOK, result)
}

func (h *IngestHandler) session(w http.ResponseWriter, r *http.Request) (*services.IngestionSession, bool) {
	domain, ok := domainParam(w, r)
	if !ok {
		return nil, false
	}
	operator, ok := operatorOrReject(w, r)
	if !ok {
		return nil, false
	}
	session, err := h.service.Session(operator, domain)
	if err != nil {
		sendIngestError(w, r, err, nil, nil)
		return nil, false
	}
	return session, true
}

func (h *IngestHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	utils.SendJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IngestHandler) HandlePaste(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	text, err := h.readPaste(w, r)
	if err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	if err := session.Paste(text); err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IngestHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	text, err := h.readUpload(r)
	if err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	if err := session.Paste(text); err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IngestHandler) HandleSessionAnalyze(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	analysis, err := session.Analyze()
	if err != nil {
		sendIngestError(w, r, err, analysis, nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IngestHandler) HandleSessionSave(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	result, err := session.Save(r.Context())
	if err != nil {
		sendIngestError(w, r, err, nil, result)
		return
	}
	utils.SendJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IngestHandler) HandleSessionReset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := session.Reset(); err != nil {
		sendIngestError(w, r, err, nil, nil)
		return
	}
	utils.SendJSON(w, http.StatusOK, session.Snapshot())
}

func (h *IngestHandler) HandleRecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			utils.SendJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := h.service.RecentRuns(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list ingestion runs", "error", err)
		utils.SendJSONError(w, "Failed to list ingestion runs", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, runs)
}
