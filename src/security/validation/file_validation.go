package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/kaibayosung/ohsung-system/src/logger"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// DetectedZip is what content sniffing reports for an .xlsx workbook.
	DetectedZip = "application/zip"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                  true,
	"application/csv":           true,
	"text/plain":                true,
	"text/tab-separated-values": true,
	"application/vnd.ms-excel":  true, // Often used for CSV by older Excel
	ContentTypeXLSX:             true,
	"text/html":                 true, // spreadsheet "save as web page"
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !AllowedClientContentTypes[ct] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not allowed", ErrValidationFailed, contentType)
	}
	return nil
}

// isBinaryContent checks if a buffer contains binary control characters (like null bytes)
// which indicate the file is likely not a valid text export.
func isBinaryContent(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return true
	}
	// The sniff window may cut a multi-byte rune in half.
	trimmed := buf
	for i := 0; i < utf8.UTFMax && len(trimmed) > 0 && !utf8.Valid(trimmed); i++ {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return !utf8.Valid(trimmed)
}

// ValidateFileContentByMagicBytes checks the actual file content signature (magic bytes)
// and returns the detected type. Zip containers (xlsx) and plain text are accepted.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	// Read first 1024 bytes (1KB) for detection
	buffer := make([]byte, 1024)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the converter can read the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])
	if detectedContentType == DetectedZip {
		logger.L.Debug("File content type validated", "detectedContentType", detectedContentType)
		return detectedContentType, nil
	}

	if isBinaryContent(buffer[:n]) {
		logger.L.Warn("File rejected: Binary content detected in text upload")
		return "application/octet-stream", fmt.Errorf("%w: file appears to be binary, not a spreadsheet export", ErrValidationFailed)
	}

	allowedDetectedTypes := map[string]bool{
		"text/plain": true,
		"text/csv":   true,
		"text/html":  true,
	}
	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("%w: detected file content type '%s' is not allowed", ErrValidationFailed, detectedContentType)
	}

	logger.L.Debug("File content type validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
