package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/parsers"
	"github.com/kaibayosung/ohsung-system/src/security"
	"github.com/kaibayosung/ohsung-system/src/services"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testOperator = "clerk@ohsung.kr"
	testPassword = "paste-and-save"

	exampleWorkLog = "2026-01-10\tAcme\tCoilA\t5MM\t1,000\t2,000\t2,000,000\tSLITING\n" +
		"\tAcme\tCoilB\t5MM\t500\t2,000\t1,000,000\tSLITING\n"
)

var testCSRFKey = []byte("csrf-key-for-tests-only-32-bytes")

type testServer struct {
	router http.Handler
	gw     *database.MemoryGateway
	auth   *security.AuthService
	token  string
}

// newTestServer wires the API routes over an in-memory store.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gw := database.NewMemoryGateway()

	resolver, err := services.NewDuplicateResolver(gw, services.ResolverOptions{})
	require.NoError(t, err)
	pipelines, err := services.BuildPipelines(gw, resolver, parsers.Options{})
	require.NoError(t, err)

	recordService := services.NewRecordService(gw, cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval))
	ingestionService := services.NewIngestionService(pipelines, gw, cache.New(time.Hour, services.CacheCleanupInterval), recordService)
	accessLogService := services.NewAccessLogService(gw)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	auth := security.NewAuthService("jwt-secret-for-tests-only-32byte", time.Hour, map[string]string{testOperator: string(hash)})

	authHandler := NewAuthHandler(auth, accessLogService)
	ingestHandler := NewIngestHandler(ingestionService, 1<<20)
	recordHandler := NewRecordHandler(recordService)

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/csrf", NewCSRFTokenHandler(testCSRFKey))
		r.With(CSRFMiddleware(testCSRFKey)).Post("/auth/login", authHandler.LoginHandler)

		r.Group(func(r chi.Router) {
			r.Use(authHandler.AuthMiddleware)
			r.Get("/ingest/runs", ingestHandler.HandleRecentRuns)
			r.Post("/ingest/{domain}/analyze", ingestHandler.HandleAnalyze)
			r.Post("/ingest/{domain}", ingestHandler.HandleIngest)
			r.Get("/ingest/{domain}/session", ingestHandler.HandleGetSession)
			r.Put("/ingest/{domain}/session", ingestHandler.HandlePaste)
			r.Post("/ingest/{domain}/session/upload", ingestHandler.HandleUpload)
			r.Post("/ingest/{domain}/session/analyze", ingestHandler.HandleSessionAnalyze)
			r.Post("/ingest/{domain}/session/save", ingestHandler.HandleSessionSave)
			r.Post("/ingest/{domain}/session/reset", ingestHandler.HandleSessionReset)
			r.Get("/records/{domain}", recordHandler.HandleListMonth)
			r.Delete("/records/{domain}", recordHandler.HandleDeleteMonth)
			r.Delete("/records/{domain}/{id}", recordHandler.HandleDeleteRecord)
			r.Get("/access-logs", authHandler.HandleGetAccessLogs)
		})
	})

	token, err := auth.GenerateToken(testOperator)
	require.NoError(t, err)
	return &testServer{router: r, gw: gw, auth: auth, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for k, v := range header {
		req.Header[k] = v
	}
	if req.Header.Get("Authorization") == "" && s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// snapshotView is the client's view of a session snapshot.
type snapshotView struct {
	Domain   string `json:"domain"`
	State    string `json:"state"`
	HasText  bool   `json:"has_text"`
	Message  string `json:"message"`
	Analysis *struct {
		Records []map[string]any `json:"records"`
	} `json:"analysis"`
	Result *struct {
		RunID         string `json:"run_id"`
		AcceptedCount int    `json:"accepted_count"`
		SkippedCount  int    `json:"skipped_count"`
	} `json:"result"`
}
