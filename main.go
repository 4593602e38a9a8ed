package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kaibayosung/ohsung-system/db"
	"github.com/kaibayosung/ohsung-system/src/config"
	"github.com/kaibayosung/ohsung-system/src/database"
	"github.com/kaibayosung/ohsung-system/src/handlers"
	"github.com/kaibayosung/ohsung-system/src/logger"
	"github.com/kaibayosung/ohsung-system/src/parsers"
	"github.com/kaibayosung/ohsung-system/src/processors"
	"github.com/kaibayosung/ohsung-system/src/security"
	"github.com/kaibayosung/ohsung-system/src/services"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(allowed []string) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedOrigins[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, X-CSRF-Token, Authorization, If-None-Match")
				w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// openStore picks the record store named by STORE_DRIVER. The returned
// closer releases the underlying connections.
func openStore(ctx context.Context, cfg *config.AppConfig) (database.Store, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite", "":
		logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
		database.InitDB(cfg.DatabasePath)
		if err := database.RunMigrations(database.DB, cfg.DatabasePath, db.Migrations, cfg.MigrationsPath); err != nil {
			database.DB.Close()
			return nil, nil, err
		}
		return database.NewSQLGateway(database.DB), func() { database.DB.Close() }, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		gw, err := database.NewPostgresGateway(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return gw, gw.Close, nil
	case "memory":
		logger.L.Warn("Using the in-memory store; records are lost on restart")
		return database.NewMemoryGateway(), func() {}, nil
	}
	return nil, nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver)
}

func loadClassifier(path string) (*processors.CategoryClassifier, error) {
	rules := processors.DefaultCategoryRules()
	if path != "" {
		loaded, err := processors.LoadCategoryRules(path)
		if err != nil {
			return nil, err
		}
		rules = loaded
		logger.L.Info("Loaded category rules", "path", path, "rules", len(rules.Rules))
	}
	return processors.NewCategoryClassifier(rules)
}

func main() {
	config.LoadConfig()
	cfg := config.Cfg
	logger.InitLogger(cfg.LogLevel, cfg.LogFormat)

	logger.L.Info("Ohsung ingestion server starting...")

	if len(cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.L.Error("Failed to open record store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	classifier, err := loadClassifier(cfg.CategoryRulesPath)
	if err != nil {
		logger.L.Error("Invalid category rules", "error", err)
		os.Exit(1)
	}

	resolver, err := services.NewDuplicateResolver(store, services.ResolverOptions{
		Strategy:        cfg.DedupStrategy,
		Tolerance:       cfg.DedupTolerance,
		SampleLimit:     cfg.SkippedSampleLimit,
		MaxPrefetchDays: cfg.DedupMaxPrefetchDays,
	})
	if err != nil {
		logger.L.Error("Invalid dedup configuration", "error", err)
		os.Exit(1)
	}

	pipelines, err := services.BuildPipelines(store, resolver, parsers.Options{
		Strict:              cfg.IngestStrict,
		Classifier:          classifier,
		WorkLogNoiseMarkers: cfg.WorkLogNoiseMarkers,
		LedgerNoiseMarkers:  cfg.LedgerNoiseMarkers,
	})
	if err != nil {
		logger.L.Error("Failed to build ingestion pipelines", "error", err)
		os.Exit(1)
	}

	monthCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	sessionCache := cache.New(cfg.SessionTTL, services.CacheCleanupInterval)

	recordService := services.NewRecordService(store, monthCache)
	ingestionService := services.NewIngestionService(pipelines, store, sessionCache, recordService)
	accessLogService := services.NewAccessLogService(store)
	authService := security.NewAuthService(cfg.JWTSecret, cfg.AccessTokenExpiry, cfg.OperatorAccounts)

	authHandler := handlers.NewAuthHandler(authService, accessLogService)
	ingestHandler := handlers.NewIngestHandler(ingestionService, cfg.MaxUploadSizeBytes)
	recordHandler := handlers.NewRecordHandler(recordService)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Ohsung ingestion backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/csrf", handlers.NewCSRFTokenHandler(cfg.CSRFAuthKey))

		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(cfg.CSRFAuthKey))
			r.Post("/auth/login", authHandler.LoginHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(cfg.CSRFAuthKey))
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

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.L.Info("Shutting down server")
		server.Shutdown(shutdownCtx)
	}()

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
