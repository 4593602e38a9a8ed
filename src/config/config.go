package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port      string
	LogLevel  string
	LogFormat string

	// Store settings
	StoreDriver    string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// Security settings
	JWTSecret          string
	CSRFAuthKey        []byte
	AccessTokenExpiry  time.Duration
	OperatorAccounts   map[string]string
	MaxUploadSizeBytes int64
	AllowedOrigins     []string

	// Ingestion settings
	IngestStrict         bool
	DedupStrategy        string
	DedupTolerance       float64
	DedupMaxPrefetchDays int
	SkippedSampleLimit   int
	SessionTTL           time.Duration
	CategoryRulesPath    string
	WorkLogNoiseMarkers  []string
	LedgerNoiseMarkers   []string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	// --- Secrets ---
	jwtSecret := getRequiredEnv("JWT_SECRET")
	csrfAuthKeyStr := getRequiredEnv("CSRF_AUTH_KEY")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760") // 10MB default
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	Cfg = &AppConfig{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", "sqlite")),
		DatabasePath:   getEnv("DATABASE_PATH", "./ohsung.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", ""),

		JWTSecret:          jwtSecret,
		CSRFAuthKey:        []byte(csrfAuthKeyStr),
		AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 12*time.Hour),
		OperatorAccounts:   getOperatorAccounts("OPERATOR_ACCOUNTS"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		IngestStrict:         getEnvAsBool("INGEST_STRICT", false),
		DedupStrategy:        getEnv("DEDUP_STRATEGY", "auto"),
		DedupTolerance:       getEnvAsFloat("DEDUP_TOLERANCE", 1),
		DedupMaxPrefetchDays: getEnvAsInt("DEDUP_MAX_PREFETCH_DAYS", 92),
		SkippedSampleLimit:   getEnvAsInt("SKIPPED_SAMPLE_LIMIT", 20),
		SessionTTL:           getEnvAsDuration("SESSION_TTL", 8*time.Hour),
		CategoryRulesPath:    getEnv("CATEGORY_RULES_PATH", ""),
		WorkLogNoiseMarkers:  getEnvAsList("WORKLOG_NOISE_MARKERS", nil),
		LedgerNoiseMarkers:   getEnvAsList("LEDGER_NOISE_MARKERS", nil),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, Store=%s, Strict=%t, Dedup=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.StoreDriver, Cfg.IngestStrict, Cfg.DedupStrategy)
	log.Printf("Operator accounts loaded: %d", len(Cfg.OperatorAccounts))
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping blank items.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getOperatorAccounts parses "email=bcrypt-hash" pairs. Bcrypt hashes never
// contain '=' or ',', so both separators are safe.
func getOperatorAccounts(key string) map[string]string {
	accounts := make(map[string]string)
	for _, pair := range getEnvAsList(key, nil) {
		email, hash, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(email) == "" || strings.TrimSpace(hash) == "" {
			log.Printf("WARNING: Ignoring malformed entry in %s", key)
			continue
		}
		accounts[strings.ToLower(strings.TrimSpace(email))] = strings.TrimSpace(hash)
	}
	if len(accounts) == 0 {
		log.Printf("WARNING: %s is empty. Nobody will be able to sign in.", key)
	}
	return accounts
}
