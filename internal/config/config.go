package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fxledger/internal/core"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Memory backend seed directory
	DataDir string

	// Remote rate source
	RateAPIURL            string
	RateBases             []string
	RateRefreshInterval   time.Duration
	RateRequestsPerSecond int
	RefreshConcurrency    int

	// AMQP
	AMQPURL          string
	AMQPExchange     string
	AMQPQueue        string
	AMQPRefreshQueue string

	// Reporting
	DisplayCurrency string

	// Logging
	LogLevel string

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fxledger.db"),
		DataDir:      getEnv("DATA_DIR", "data"),

		RateAPIURL:            getEnv("RATE_API_URL", "https://open.er-api.com/v6/latest"),
		RateBases:             getEnvList("RATE_BASES", []string{"USD"}),
		RateRefreshInterval:   getEnvDuration("RATE_REFRESH_INTERVAL", time.Hour),
		RateRequestsPerSecond: getEnvInt("RATE_REQUESTS_PER_SECOND", 2),
		RefreshConcurrency:    getEnvInt("RATE_REFRESH_CONCURRENCY", 4),

		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "fxledger"),
		AMQPQueue:        getEnv("AMQP_QUEUE", "rates_refreshed"),
		AMQPRefreshQueue: getEnv("AMQP_REFRESH_QUEUE", "rates_refresh_requests"),

		DisplayCurrency: strings.ToUpper(getEnv("DISPLAY_CURRENCY", "USD")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// The rate cache always lives in SQLite when the sqlite backend is selected
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

	if c.DataBackend == "memory" && c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty when using memory backend")
	}

	// Validate rate API URL
	if c.RateAPIURL == "" {
		errors = append(errors, "rate API URL cannot be empty")
	} else if parsedURL, err := url.Parse(c.RateAPIURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid rate API URL '%s': %v", c.RateAPIURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid rate API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}

	// Validate base currencies
	if len(c.RateBases) == 0 {
		errors = append(errors, "at least one rate base currency is required")
	}
	for _, base := range c.RateBases {
		if err := core.ValidateCurrency(base); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate base currency '%s'", base))
		}
	}
	if err := core.ValidateCurrency(c.DisplayCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid display currency '%s'", c.DisplayCurrency))
	}

	// Validate refresh configuration
	if c.RateRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate refresh interval %v: must be at least 1 minute", c.RateRefreshInterval))
	} else if c.RateRefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rate refresh interval %v: must be at most 24 hours", c.RateRefreshInterval))
	}
	if c.RateRequestsPerSecond < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate requests per second %d: must be at least 1", c.RateRequestsPerSecond))
	}
	if c.RefreshConcurrency < 1 || c.RefreshConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid refresh concurrency %d: must be between 1 and 32", c.RefreshConcurrency))
	}

	// Validate AMQP URL if provided
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
		if c.AMQPRefreshQueue == "" {
			errors = append(errors, "AMQP refresh queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
