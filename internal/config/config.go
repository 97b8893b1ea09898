package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported DATABASE_DRIVER values
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Database configuration
	DatabaseDriver string `json:"database_driver"`
	DatabaseURL    string `json:"-"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	// Redis configuration, empty URL logs activity instead
	RedisURL           string `json:"redis_url"`
	RedisPrefix        string `json:"redis_prefix"`
	ActivityMaxEntries int    `json:"activity_max_entries"`

	// AI Configuration
	AIApiKey        string        `json:"-"`
	AIModel         string        `json:"ai_model"`
	AITimeout       time.Duration `json:"ai_timeout"`
	AnthropicAPIKey string        `json:"-"`
	AnthropicModel  string        `json:"anthropic_model"`
	AIMaxTokens     int           `json:"ai_max_tokens"`

	// Images
	UnsplashAccessKey string `json:"-"`

	// CloudFlare R2 Configuration, used to mirror article images
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url"`

	// Scheduling
	Timezone            string        `json:"timezone"`
	CronSecret          string        `json:"-"`
	TriggerEnabled      bool          `json:"trigger_enabled"`
	TriggerGenerateSpec string        `json:"trigger_generate_spec"`
	TriggerPublishSpec  string        `json:"trigger_publish_spec"`
	TriggerSweepSpec    string        `json:"trigger_sweep_spec"`
	StuckKeywordAfter   time.Duration `json:"stuck_keyword_after"`

	// Bulk runs
	BulkStepTimeout time.Duration `json:"bulk_step_timeout"`
	BulkFinalizeURL string        `json:"bulk_finalize_url"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"-"`

	location *time.Location
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Database configuration
		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverPostgres),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/autowriter?sslmode=disable"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),

		// Redis configuration
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisPrefix:        getEnv("REDIS_PREFIX", "autowriter:"),
		ActivityMaxEntries: getEnvAsInt("ACTIVITY_MAX_ENTRIES", 500),

		// AI Configuration
		AIApiKey:        getEnv("AI_API_KEY", ""),
		AIModel:         getEnv("AI_MODEL", "gemini-1.5-flash"),
		AITimeout:       getEnvAsDuration("AI_TIMEOUT", 90*time.Second),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AIMaxTokens:     getEnvAsInt("AI_MAX_TOKENS", 4096),

		// Images
		UnsplashAccessKey: getEnv("UNSPLASH_ACCESS_KEY", ""),

		// CloudFlare R2 Configuration
		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "autowriter-images"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2PublicURL: getEnv("R2_PUBLIC_URL", ""),

		// Scheduling
		Timezone:            getEnv("TIMEZONE", "UTC"),
		CronSecret:          getEnv("CRON_SECRET", ""),
		TriggerEnabled:      getEnvAsBool("TRIGGER_ENABLED", false),
		TriggerGenerateSpec: getEnv("TRIGGER_GENERATE_SPEC", "0 * * * *"),
		TriggerPublishSpec:  getEnv("TRIGGER_PUBLISH_SPEC", "*/15 * * * *"),
		TriggerSweepSpec:    getEnv("TRIGGER_SWEEP_SPEC", "*/30 * * * *"),
		StuckKeywordAfter:   getEnvAsDuration("STUCK_KEYWORD_AFTER", 30*time.Minute),

		// Bulk runs
		BulkStepTimeout: getEnvAsDuration("BULK_STEP_TIMEOUT", 5*time.Minute),
		BulkFinalizeURL: getEnv("BULK_FINALIZE_URL", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and resolves the time zone
func (c *Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("unknown TIMEZONE %q: %w", c.Timezone, err))
	} else {
		c.location = loc
	}

	if c.IsProduction() && c.CronSecret == "" {
		errs = append(errs, errors.New("CRON_SECRET is required in production"))
	}
	if c.IsProduction() && c.AdminAPIKey == "" {
		errs = append(errs, errors.New("ADMIN_API_KEY is required in production"))
	}
	if c.BulkStepTimeout <= 0 {
		errs = append(errs, errors.New("BULK_STEP_TIMEOUT must be positive"))
	}
	if c.StuckKeywordAfter <= 0 {
		errs = append(errs, errors.New("STUCK_KEYWORD_AFTER must be positive"))
	} else if minLease := c.minStuckKeywordAfter(); c.StuckKeywordAfter <= minLease {
		errs = append(errs, fmt.Errorf(
			"STUCK_KEYWORD_AFTER (%v) must be longer than the longest generation step (%v)", c.StuckKeywordAfter, minLease))
	}
	if c.R2Endpoint == "" && c.R2AccountID != "" {
		c.R2Endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
	}

	return errors.Join(errs...)
}

// minStuckKeywordAfter is the longest a keyword may legitimately stay
// reserved: a bulk step, or a generation plus an improvement call
func (c *Config) minStuckKeywordAfter() time.Duration {
	return max(c.BulkStepTimeout, 2*c.AITimeout)
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Location is the scheduling time zone. It is UTC until Validate succeeds.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// MirrorEnabled reports whether enough R2 settings are present to mirror images
func (c *Config) MirrorEnabled() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2PublicURL != ""
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
