// Package config loads server settings from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

const (
	defaultAPIToken    = "dev-token"
	defaultGRPCAddr    = ":8080"
	defaultHTTPAddr    = ":8081"
	defaultSQLitePath  = "ledger.db"
	defaultLockTimeout = 5 * time.Second
	defaultMaxAttempts = 10
)

// Config holds everything cmd/server needs to wire the service
type Config struct {
	Store       string
	DBConnStr   string
	SQLitePath  string
	GRPCAddr    string
	HTTPAddr    string
	APIToken    string
	LockTimeout time.Duration

	AccountNumberMaxAttempts int
}

// Load reads the configuration, applying defaults for unset variables
func Load() (*Config, error) {
	cfg := &Config{
		Store:      getEnv("LEDGER_STORE", StorePostgres),
		DBConnStr:  os.Getenv("DB_CONN_STR"),
		SQLitePath: getEnv("SQLITE_PATH", defaultSQLitePath),
		GRPCAddr:   getEnv("GRPC_ADDR", defaultGRPCAddr),
		HTTPAddr:   getEnv("HTTP_ADDR", defaultHTTPAddr),
		APIToken:   getEnv("API_TOKEN", defaultAPIToken),
	}

	switch cfg.Store {
	case StorePostgres, StoreSQLite, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid LEDGER_STORE %q: must be postgres, sqlite or memory", cfg.Store)
	}

	if cfg.DBConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "ledger"),
		)
	}

	cfg.LockTimeout = defaultLockTimeout
	if raw := os.Getenv("LOCK_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCK_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid LOCK_TIMEOUT %q: must be positive", raw)
		}
		cfg.LockTimeout = d
	}

	cfg.AccountNumberMaxAttempts = defaultMaxAttempts
	if raw := os.Getenv("ACCOUNT_NUMBER_MAX_ATTEMPTS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ACCOUNT_NUMBER_MAX_ATTEMPTS %q: %w", raw, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("invalid ACCOUNT_NUMBER_MAX_ATTEMPTS %q: must be positive", raw)
		}
		cfg.AccountNumberMaxAttempts = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
