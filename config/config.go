package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Registry    RegistryConfig
	Classifier  ClassifierConfig
	Policy      PolicyConfig
	Scoring     ScoringConfig
	DecisionLog DecisionLogConfig
	Router      RouterConfig
	Auth        AuthConfig
	LogLevel    string
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// RegistryConfig holds executor registry configuration
type RegistryConfig struct {
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	EvictionGrace time.Duration

	// BootstrapFile is an optional YAML file of executors registered at
	// startup, before any operator registration arrives
	BootstrapFile string
}

// ClassifierConfig holds task classifier client configuration
type ClassifierConfig struct {
	BaseURL      string
	Timeout      time.Duration
	CacheTTL     time.Duration
	CacheMaxCost int64
}

// PolicyConfig holds policy store configuration
type PolicyConfig struct {
	CacheSize    int
	CacheTTL     time.Duration
	FetchTimeout time.Duration
}

// ScoringConfig holds scoring engine configuration
type ScoringConfig struct {
	// CheckpointFile is the ability checkpoint JSON artifact
	CheckpointFile        string
	MissingAbilityPenalty float64
	CostWeight            float64
}

// DecisionLogConfig holds decision log configuration
type DecisionLogConfig struct {
	BufferSize   int
	WorkerCount  int
	WriteTimeout time.Duration
}

// RouterConfig holds router configuration
type RouterConfig struct {
	FallbackDomain string
	FallbackAction string
}

// AuthConfig holds operator API authentication configuration
type AuthConfig struct {
	// JWTSecret is the HS256 shared secret for operator tokens
	JWTSecret string
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			ConnectionString: getEnv("DATABASE_URL", ""),
			Host:             getEnv("DB_HOST", ""),
			Port:             getEnvAsInt("DB_PORT", 5432),
			User:             getEnv("DB_USER", ""),
			Password:         getEnv("DB_PASSWORD", ""),
			Database:         getEnv("DB_NAME", ""),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Registry: RegistryConfig{
			ProbeInterval: getEnvAsDuration("REGISTRY_PROBE_INTERVAL", 5*time.Second),
			ProbeTimeout:  getEnvAsDuration("REGISTRY_PROBE_TIMEOUT", 3*time.Second),
			EvictionGrace: getEnvAsDuration("REGISTRY_EVICTION_GRACE", 60*time.Second),
			BootstrapFile: getEnv("REGISTRY_BOOTSTRAP_FILE", ""),
		},
		Classifier: ClassifierConfig{
			BaseURL:      getEnv("CLASSIFIER_BASE_URL", "http://localhost:8090"),
			Timeout:      getEnvAsDuration("CLASSIFIER_TIMEOUT", 400*time.Millisecond),
			CacheTTL:     getEnvAsDuration("CLASSIFIER_CACHE_TTL", 30*time.Second),
			CacheMaxCost: int64(getEnvAsInt("CLASSIFIER_CACHE_MAX_COST", 4<<20)),
		},
		Policy: PolicyConfig{
			CacheSize:    getEnvAsInt("POLICY_CACHE_SIZE", 1024),
			CacheTTL:     getEnvAsDuration("POLICY_CACHE_TTL", 30*time.Second),
			FetchTimeout: getEnvAsDuration("POLICY_FETCH_TIMEOUT", 500*time.Millisecond),
		},
		Scoring: ScoringConfig{
			CheckpointFile:        getEnv("SCORING_CHECKPOINT_FILE", ""),
			MissingAbilityPenalty: getEnvAsFloat("SCORING_MISSING_ABILITY_PENALTY", 1.0),
			CostWeight:            getEnvAsFloat("SCORING_COST_WEIGHT", 0.05),
		},
		DecisionLog: DecisionLogConfig{
			BufferSize:   getEnvAsInt("DECISION_LOG_BUFFER_SIZE", 10000),
			WorkerCount:  getEnvAsInt("DECISION_LOG_WORKERS", 4),
			WriteTimeout: getEnvAsDuration("DECISION_LOG_WRITE_TIMEOUT", 5*time.Second),
		},
		Router: RouterConfig{
			FallbackDomain: getEnv("ROUTER_FALLBACK_DOMAIN", "general"),
			FallbackAction: getEnv("ROUTER_FALLBACK_ACTION", "*"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier base URL is required")
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("operator JWT secret is required in production")
	}

	if c.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "connection string (unparsed)"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Environment variable helpers

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
