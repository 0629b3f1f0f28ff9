package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional for the API server, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Reference name cache
	ReferenceCacheSize int
	ReferenceCacheTTL  time.Duration

	// Mirror worker
	MirrorBatchSize         int
	MirrorReconcileInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"memory", "sqlite"}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/opensheets.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "opensheets"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Lancamentos"),

		ReferenceCacheSize: getEnvInt("REFERENCE_CACHE_SIZE", 500),
		ReferenceCacheTTL:  getEnvDuration("REFERENCE_CACHE_TTL", 10*time.Minute),

		MirrorBatchSize:         getEnvInt("MIRROR_BATCH_SIZE", 50),
		MirrorReconcileInterval: getEnvDuration("MIRROR_RECONCILE_INTERVAL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks every setting and reports all problems in one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
	}

	if c.ReferenceCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid reference cache size %d: must be at least 1", c.ReferenceCacheSize))
	}
	if c.ReferenceCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reference cache TTL %v: must be at least 1 second", c.ReferenceCacheTTL))
	}

	if c.MirrorBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at least 1", c.MirrorBatchSize))
	} else if c.MirrorBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid mirror batch size %d: must be at most 1000", c.MirrorBatchSize))
	}

	if c.MirrorReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid mirror reconcile interval %v: must be at least 1 second", c.MirrorReconcileInterval))
	} else if c.MirrorReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid mirror reconcile interval %v: must be at most 24 hours", c.MirrorReconcileInterval))
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the checks the mirror worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AMQPURL == "" {
		return fmt.Errorf("configuration validation failed:\n- AMQP_URL is required by the worker")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
