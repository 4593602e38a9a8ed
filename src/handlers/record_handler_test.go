package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listingView struct {
	Domain  string           `json:"domain"`
	Year    int              `json:"year"`
	Month   int              `json:"month"`
	Count   int              `json:"count"`
	Records []map[string]any `json:"records"`
}

func ingestExample(t *testing.T, s *testServer) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/ingest/worklog", jsonBody(t, map[string]string{"text": exampleWorkLog}), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListMonthWithETag(t *testing.T) {
	s := newTestServer(t)
	ingestExample(t, s)

	rec := s.do(t, http.MethodGet, "/api/records/worklog?year=2026&month=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	listing := decode[listingView](t, rec)
	assert.Equal(t, 2, listing.Count)
	assert.Equal(t, 2026, listing.Year)
	assert.Equal(t, 1, listing.Month)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = s.do(t, http.MethodGet, "/api/records/worklog?year=2026&month=1", nil, http.Header{"If-None-Match": {etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/records/worklog?year=2026&month=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[listingView](t, rec)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Records)
}

func TestListMonthValidation(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"year=2026&month=13", "year=1999&month=1", "year=abc"} {
		rec := s.do(t, http.MethodGet, "/api/records/worklog?"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	rec := s.do(t, http.MethodGet, "/api/records/payroll", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRecordEndpoint(t *testing.T) {
	s := newTestServer(t)
	ingestExample(t, s)

	listing := decode[listingView](t, s.do(t, http.MethodGet, "/api/records/worklog?year=2026&month=1", nil, nil))
	require.Len(t, listing.Records, 2)
	id := int64(listing.Records[0]["id"].(float64))

	rec := s.do(t, http.MethodDelete, fmt.Sprintf("/api/records/worklog/%d", id), nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/records/worklog/%d", id), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/records/worklog/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	listing = decode[listingView](t, s.do(t, http.MethodGet, "/api/records/worklog?year=2026&month=1", nil, nil))
	assert.Equal(t, 1, listing.Count)
}

func TestDeleteMonthEndpoint(t *testing.T) {
	s := newTestServer(t)
	ingestExample(t, s)

	rec := s.do(t, http.MethodDelete, "/api/records/worklog", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "year and month are required")

	rec = s.do(t, http.MethodDelete, "/api/records/worklog?year=2026&month=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[map[string]int](t, rec)["deleted"])

	listing := decode[listingView](t, s.do(t, http.MethodGet, "/api/records/worklog?year=2026&month=1", nil, nil))
	assert.Equal(t, 0, listing.Count)
}
