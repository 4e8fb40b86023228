package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"rafflehub/database"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// HTTP configuration
	HTTPAddr           string
	CORSAllowedOrigins []string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Raffle configuration
	ExpiryCheckInterval time.Duration // How often the expiry worker scans for lapsed raffles
	DefaultPageLimit    int
	MaxPageLimit        int

	// NATS configuration (cross-instance fan-out relay, off by default)
	NATSEnabled bool
	NATSServers string // NATS server addresses (comma-separated)

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load reads configuration from defaults, an optional config file and the environment
func load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := os.Getenv("RAFFLEHUB_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("cors_allowed_origins", "*")

	v.SetDefault("database_url", "")
	v.SetDefault("database_name", "")

	v.SetDefault("expiry_check_interval", "1m")
	v.SetDefault("default_page_limit", 10)
	v.SetDefault("max_page_limit", 100)

	v.SetDefault("nats_enabled", false)
	v.SetDefault("nats_servers", "nats://nats:4222")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("otel_enabled", false)
	v.SetDefault("otel_service_name", "rafflehub")
	v.SetDefault("otel_exporter_type", "none")
	v.SetDefault("otel_otlp_endpoint", "localhost:4317")
	v.SetDefault("otel_export_interval_millis", 30000)

	v.SetDefault("environment", "development")
}

func fromViper(v *viper.Viper) (*Config, error) {
	config := &Config{
		HTTPAddr:           v.GetString("http_addr"),
		CORSAllowedOrigins: splitList(v.GetString("cors_allowed_origins")),

		DatabaseURL:  v.GetString("database_url"),
		DatabaseName: v.GetString("database_name"),

		ExpiryCheckInterval: v.GetDuration("expiry_check_interval"),
		DefaultPageLimit:    v.GetInt("default_page_limit"),
		MaxPageLimit:        v.GetInt("max_page_limit"),

		NATSEnabled: v.GetBool("nats_enabled"),
		NATSServers: v.GetString("nats_servers"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),

		OTelEnabled:              v.GetBool("otel_enabled"),
		OTelServiceName:          v.GetString("otel_service_name"),
		OTelExporterType:         v.GetString("otel_exporter_type"),
		OTelOTLPEndpoint:         v.GetString("otel_otlp_endpoint"),
		OTelExportIntervalMillis: v.GetInt("otel_export_interval_millis"),

		Environment: v.GetString("environment"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.Environment != "test" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not blank
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if c.ExpiryCheckInterval < time.Second {
		return fmt.Errorf("EXPIRY_CHECK_INTERVAL must be at least 1s")
	}
	if c.DefaultPageLimit < 1 || c.MaxPageLimit < c.DefaultPageLimit {
		return fmt.Errorf("page limits are inconsistent: default %d, max %d", c.DefaultPageLimit, c.MaxPageLimit)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, text")
	}

	return nil
}

// splitList parses a comma-separated value into trimmed, non-empty items
func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:            ":0",
		CORSAllowedOrigins:  []string{"*"},
		ExpiryCheckInterval: time.Minute,
		DefaultPageLimit:    10,
		MaxPageLimit:        100,
		LogLevel:            "debug",
		LogFormat:           "text",
		OTelExporterType:    "none",
		Environment:         "test",
	}
}
