// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// JWT Authentication
	JWTSecret string `koanf:"jwt_secret"`

	// Ranking model service (scoring and projection)
	ModelServiceURL string `koanf:"model_service_url"`

	// Text encoder (OpenAI-compatible embeddings API)
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIBaseURL string `koanf:"openai_base_url"` // optional, for self-hosted encoders

	// Redis (rate limiting); optional, limiter falls back to in-memory
	RedisURL string `koanf:"redis_url"`

	// Kafka (engagement event stream); optional, events are not published when unset
	KafkaBrokers string `koanf:"kafka_brokers"` // comma-separated
	KafkaTopic   string `koanf:"kafka_topic"`

	// CORS; optional, cross-origin requests are rejected when unset
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"` // comma-separated

	// Pipeline tuning
	MaxAgeDays      int `koanf:"max_age_days"`       // candidate age window
	InNetworkCap    int `koanf:"in_network_cap"`     // recent posts fetched from followed authors
	OONWorkingSet   int `koanf:"oon_working_set"`    // post vectors scanned for similarity
	OONTopN         int `koanf:"oon_top_n"`          // similar posts hydrated after the scan
	SourceTimeoutMS int `koanf:"source_timeout_ms"`  // per-branch sourcing/model timeout
	BackfillBatch   int `koanf:"backfill_batch_size"` // posts scanned per backfill sweep
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL     = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret       = errors.New("JWT_SECRET is required")
	ErrMissingModelServiceURL = errors.New("MODEL_SERVICE_URL is required")
	ErrMissingOpenAIAPIKey    = errors.New("OPENAI_API_KEY is required")
	ErrInvalidPort            = errors.New("PORT must be a valid integer")
)

// Default values for non-secret configuration.
const (
	DefaultPort            = 8080
	DefaultEnv             = "development"
	DefaultKafkaTopic      = "engagement-events"
	DefaultMaxAgeDays      = 7
	DefaultInNetworkCap    = 300
	DefaultOONWorkingSet   = 1000
	DefaultOONTopN         = 300
	DefaultSourceTimeoutMS = 5000
	DefaultBackfillBatch   = 500
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	// Parse port from env, collecting error if invalid
	// Try RANKLAB_PORT first, then PORT for backward compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"RANKLAB_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	// Parse pipeline tuning knobs, collecting errors for invalid values
	intKnob := func(envKey, koanfKey string, def int) int {
		v, err := getEnvIntOrDefault(envKey, k.Int(koanfKey), def)
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
		return v
	}
	maxAgeDays := intKnob("MAX_AGE_DAYS", "max_age_days", DefaultMaxAgeDays)
	inNetworkCap := intKnob("IN_NETWORK_CAP", "in_network_cap", DefaultInNetworkCap)
	oonWorkingSet := intKnob("OON_WORKING_SET", "oon_working_set", DefaultOONWorkingSet)
	oonTopN := intKnob("OON_TOP_N", "oon_top_n", DefaultOONTopN)
	sourceTimeoutMS := intKnob("SOURCE_TIMEOUT_MS", "source_timeout_ms", DefaultSourceTimeoutMS)
	backfillBatch := intKnob("BACKFILL_BATCH_SIZE", "backfill_batch_size", DefaultBackfillBatch)

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:            port,
		Env:             getEnvOrDefaultMulti([]string{"RANKLAB_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:     getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		JWTSecret:       getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		ModelServiceURL: getEnvOrKoanf("MODEL_SERVICE_URL", k, "model_service_url"),
		OpenAIAPIKey:    getEnvOrKoanf("OPENAI_API_KEY", k, "openai_api_key"),
		OpenAIBaseURL:   getEnvOrKoanf("OPENAI_BASE_URL", k, "openai_base_url"),
		RedisURL:        getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		KafkaBrokers:    getEnvOrKoanf("KAFKA_BROKERS", k, "kafka_brokers"),
		KafkaTopic:      getEnvOrDefault("KAFKA_TOPIC", k.String("kafka_topic"), DefaultKafkaTopic),

		CORSAllowedOrigins: getEnvOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		MaxAgeDays:      maxAgeDays,
		InNetworkCap:    inNetworkCap,
		OONWorkingSet:   oonWorkingSet,
		OONTopN:         oonTopN,
		SourceTimeoutMS: sourceTimeoutMS,
		BackfillBatch:   backfillBatch,
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// KafkaBrokerList splits the comma-separated broker string. Returns nil when
// no brokers are configured.
func (c *Config) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// CORSOriginList splits the comma-separated origin string. Returns nil when
// no origins are configured.
func (c *Config) CORSOriginList() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
// Note: a zero value in a YAML file falls back to the default.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, err)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.ModelServiceURL == "" {
		errs = append(errs, ErrMissingModelServiceURL)
	}
	if c.OpenAIAPIKey == "" {
		errs = append(errs, ErrMissingOpenAIAPIKey)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":              fmt.Sprintf("%d", c.Port),
		"env":               c.Env,
		"database_url":      maskDatabaseURL(c.DatabaseURL),
		"jwt_secret":        maskSecret(c.JWTSecret),
		"model_service_url": c.ModelServiceURL,
		"openai_api_key":    maskSecret(c.OpenAIAPIKey),
		"openai_base_url":   c.OpenAIBaseURL,
		"redis_url":         maskDatabaseURL(c.RedisURL),
		"kafka_brokers":     c.KafkaBrokers,
		"kafka_topic":       c.KafkaTopic,
		"cors_origins":      c.CORSAllowedOrigins,
		"max_age_days":      fmt.Sprintf("%d", c.MaxAgeDays),
		"in_network_cap":    fmt.Sprintf("%d", c.InNetworkCap),
		"oon_working_set":   fmt.Sprintf("%d", c.OONWorkingSet),
		"oon_top_n":         fmt.Sprintf("%d", c.OONTopN),
		"source_timeout_ms": fmt.Sprintf("%d", c.SourceTimeoutMS),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Supports postgres://, postgresql://, and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	// Simple approach: find :// and then mask between : and @
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
