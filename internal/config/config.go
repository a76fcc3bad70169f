// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultJWTSecret is only acceptable when APP_ENV=development.
	DefaultJWTSecret = "dev-jwt-secret-change-this-32-bytes-minimum"
	defaultAdminKey  = "dev-admin-key"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	AppEnv      string
	CORSOrigins string
	Store       StoreConfig
	Sessions    SessionConfig
	Auth        AuthConfig
	Monday      MondayConfig
	AI          AIConfig
	Transcript  TranscriptConfig
}

// StoreConfig selects and configures the repository backend.
type StoreConfig struct {
	Backend     string // memory, sqlite or postgres
	DBPath      string
	DatabaseURL string
	MaxConns    int
	SeedSample  bool
}

// SessionConfig selects where chat sessions live.
type SessionConfig struct {
	Backend  string // memory or redis
	RedisURL string
	TTL      time.Duration
}

// AuthConfig holds client token and admin settings.
type AuthConfig struct {
	JWTSecret   string
	JWTExpiry   time.Duration
	AdminSecret string
	RateLimit   int
	RateWindow  time.Duration
}

// MondayConfig holds board integration settings.
type MondayConfig struct {
	APIURL        string
	APIToken      string
	BoardID       string
	MockMode      bool
	ColumnMapJSON string
}

// AIConfig holds summary model settings after provider-specific fallbacks
// have been resolved.
type AIConfig struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	SystemPrompt string
	Timeout      time.Duration
}

// TranscriptConfig controls NDJSON chat transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	adminSecret := getEnv("ADMIN_PASSWORD", "")
	if adminSecret == "" {
		adminSecret = getEnv("ADMIN_API_KEY", defaultAdminKey)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		AppEnv:      strings.ToLower(getEnv("APP_ENV", "development")),
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173"),
		Store: StoreConfig{
			Backend:     strings.ToLower(getEnv("STORE_BACKEND", "memory")),
			DBPath:      getEnv("DB_PATH", "./data/biabot.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			MaxConns:    getEnvInt("DB_MAX_CONNS", 10),
			SeedSample:  getEnvBool("SEED_SAMPLE_DATA", true),
		},
		Sessions: SessionConfig{
			Backend:  strings.ToLower(getEnv("SESSION_STORE", "memory")),
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvDuration("SESSION_TTL", 60*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", DefaultJWTSecret),
			JWTExpiry:   time.Duration(getEnvInt("JWT_EXP_MINUTES", 480)) * time.Minute,
			AdminSecret: adminSecret,
			RateLimit:   getEnvInt("AUTH_RATE_LIMIT", 15),
			RateWindow:  getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Monday: MondayConfig{
			APIURL:        getEnv("MONDAY_API_URL", "https://api.monday.com/v2"),
			APIToken:      getEnv("MONDAY_API_TOKEN", ""),
			BoardID:       getEnv("MONDAY_BOARD_ID", ""),
			MockMode:      getEnvBool("MONDAY_MOCK_MODE", true),
			ColumnMapJSON: getEnv("MONDAY_COLUMN_MAP_JSON", ""),
		},
		AI: loadAI(),
		Transcript: TranscriptConfig{
			Enabled:   getEnvBool("TRANSCRIPT_LOG_ENABLED", true),
			Dir:       getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadAI resolves AI_* settings, falling back to the vendor-specific keys.
func loadAI() AIConfig {
	ai := AIConfig{
		Provider:     strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "openai"))),
		Model:        getEnv("AI_MODEL", ""),
		APIKey:       getEnv("AI_API_KEY", ""),
		BaseURL:      getEnv("AI_BASE_URL", ""),
		SystemPrompt: getEnv("INTAKE_SYSTEM_PROMPT", ""),
		Timeout:      getEnvDuration("AI_TIMEOUT", 30*time.Second),
	}
	switch ai.Provider {
	case "anthropic", "claude":
		if ai.APIKey == "" {
			ai.APIKey = getEnv("ANTHROPIC_API_KEY", "")
		}
		if ai.Model == "" {
			ai.Model = getEnv("ANTHROPIC_MODEL", "")
		}
	case "openai", "openai_compatible":
		if ai.APIKey == "" {
			ai.APIKey = getEnv("OPENAI_API_KEY", "")
		}
		if ai.Model == "" {
			ai.Model = getEnv("OPENAI_MODEL", "")
		}
		if ai.BaseURL == "" {
			ai.BaseURL = getEnv("OPENAI_BASE_URL", "")
		}
	}
	return ai
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty when STORE_BACKEND=sqlite")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, sqlite or postgres, got %q", c.Store.Backend)
	}
	switch c.Sessions.Backend {
	case "memory":
	case "redis":
		if c.Sessions.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be memory or redis, got %q", c.Sessions.Backend)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if !c.IsDevelopment() && c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXP_MINUTES must be > 0")
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateWindow <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT and RATE_LIMIT_WINDOW must be > 0")
	}
	switch c.AI.Provider {
	case "openai", "openai_compatible", "anthropic", "claude", "none", "off", "disabled", "":
	default:
		return fmt.Errorf("AI_PROVIDER %q is not supported", c.AI.Provider)
	}
	if c.Transcript.Enabled && c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s", "2h") or a bare number of minutes.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Minute
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
