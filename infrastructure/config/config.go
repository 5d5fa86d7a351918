package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends selectable with STORE_BACKEND
const (
	BackendSupabase = "supabase"
	BackendDynamoDB = "dynamodb"
	BackendLocal    = "local"
)

// PersistenceConfig holds the remote and local store settings
type PersistenceConfig struct {
	// Backend selects the remote store: supabase, dynamodb or local (no remote)
	Backend string

	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string

	DynamoDBTable string

	// LocalPath is the badger directory; empty keeps the local store in memory
	LocalPath string

	RemoteTimeout    time.Duration
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
	AutosaveDelay    time.Duration
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion    string
	EventBusName string

	// Editor rules file, optional
	RulesPath string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics  bool
	EnableTracing  bool
	EnableCORS     bool
	EnableAutosave bool
	EnableHandoff  bool

	OTLPEndpoint string

	Persistence PersistenceConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		EventBusName:  getEnv("EVENT_BUS_NAME", "strategy-events"),
		RulesPath:     getEnv("EDITOR_RULES_PATH", ""),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
		EnableTracing:  getEnvBool("ENABLE_TRACING", false),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
		EnableAutosave: getEnvBool("ENABLE_AUTOSAVE", true),
		EnableHandoff:  getEnvBool("ENABLE_HANDOFF", false),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		Persistence: PersistenceConfig{
			Backend:          getEnv("STORE_BACKEND", BackendLocal),
			SupabaseURL:      getEnv("SUPABASE_URL", ""),
			SupabaseKey:      getEnv("SUPABASE_KEY", ""),
			SupabaseTable:    getEnv("SUPABASE_TABLE", "strategies"),
			DynamoDBTable:    getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "strategies")),
			LocalPath:        getEnv("LOCAL_STORE_PATH", ""),
			RemoteTimeout:    getEnvDuration("REMOTE_TIMEOUT", 5*time.Second),
			BreakerFailures:  uint32(getEnvInt("BREAKER_FAILURES", 3)),
			BreakerOpenDelay: getEnvDuration("BREAKER_OPEN_DELAY", 30*time.Second),
			AutosaveDelay:    getEnvDuration("AUTOSAVE_DELAY", 2*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case BackendSupabase:
		if c.Persistence.SupabaseURL == "" || c.Persistence.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
		}
	case BackendDynamoDB:
		if c.Persistence.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Persistence.Backend)
	}

	if c.EnableHandoff && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when hand-off is enabled")
	}

	if c.IsProduction() && c.Persistence.LocalPath == "" {
		return fmt.Errorf("LOCAL_STORE_PATH is required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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
