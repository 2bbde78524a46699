// Copyright 2025 Joseph Cumines
//
// Configuration package for the personal-data MCP server

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// TransportType represents the MCP transport type
type TransportType string

const (
	// TransportStdio uses stdin/stdout for communication
	TransportStdio TransportType = "stdio"
	// TransportHTTP uses HTTP/SSE for communication
	TransportHTTP TransportType = "sse"
)

// Config holds the configuration for the MCP server.
//
//lint:ignore BETTERALIGN struct is intentionally ordered for clarity
type Config struct {
	// Transport selection and HTTP settings
	Transport         TransportType `validate:"oneof=stdio sse"`
	HTTPAddress       string        `validate:"required_if=Transport sse"`
	HTTPSocketPath    string
	CORSOrigin        string
	APIKey            string
	RateLimit         float64 `validate:"gte=0"`
	HeartbeatInterval time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration

	// Per-request budget for tool handlers, in seconds
	RequestTimeout int `validate:"gt=0"`

	// Contact resolution
	ContactCacheTTL time.Duration `validate:"gt=0"`
	AddressBookPath string

	// SQLite read paths
	MessagesDBPath string `validate:"required"`
	MailDBPath     string `validate:"required"`

	AuditLogPath string
	Debug        bool
}

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	requestTimeout, err := getEnvAsInt("PIM_REQUEST_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvAsDuration("PIM_CONTACT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	heartbeatInterval, err := getEnvAsDuration("MCP_HEARTBEAT_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}

	httpReadTimeout, err := getEnvAsDuration("MCP_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	httpWriteTimeout, err := getEnvAsDuration("MCP_HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	rateLimit, err := getEnvAsFloat("MCP_HTTP_RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	cfg := &Config{
		Transport:         TransportType(getEnv("MCP_TRANSPORT", "stdio")),
		HTTPAddress:       getEnv("MCP_HTTP_ADDRESS", ":8080"),
		HTTPSocketPath:    os.Getenv("MCP_HTTP_SOCKET"),
		CORSOrigin:        getEnv("MCP_CORS_ORIGIN", "*"),
		APIKey:            os.Getenv("MCP_HTTP_API_KEY"),
		RateLimit:         rateLimit,
		HeartbeatInterval: heartbeatInterval,
		HTTPReadTimeout:   httpReadTimeout,
		HTTPWriteTimeout:  httpWriteTimeout,
		RequestTimeout:    requestTimeout,
		ContactCacheTTL:   cacheTTL,
		AddressBookPath:   getEnv("PIM_ADDRESS_BOOK_PATH", filepath.Join(home, "Library", "Application Support", "AddressBook")),
		MessagesDBPath:    getEnv("PIM_MESSAGES_DB_PATH", filepath.Join(home, "Library", "Messages", "chat.db")),
		MailDBPath:        getEnv("PIM_MAIL_DB_PATH", filepath.Join(home, "Library", "Mail", "V10", "MailData", "Envelope Index")),
		AuditLogPath:      os.Getenv("PIM_AUDIT_LOG"),
		Debug:             getEnvAsBool("PIM_DEBUG", false),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result int
	_, err := fmt.Sscanf(value, "%d", &result)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected integer)", key, value)
	}
	return result, nil
}

func getEnvAsFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var result float64
	_, err := fmt.Sscanf(value, "%g", &result)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected number)", key, value)
	}
	return result, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q (expected duration, e.g., '30s', '5m')", key, value)
	}
	return d, nil
}
