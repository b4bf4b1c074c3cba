package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Bot      BotConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Notify   NotifyConfig
	S3       S3Config
	Media    MediaConfig
	Timezone string
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	URL             string // takes precedence over the individual fields
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	LockTimeout     time.Duration
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey         string
	DevMode        bool
	InitDataMaxAge time.Duration
	AdminUserIDs   []int64
}

// BotConfig holds Telegram bot configuration shared by the API, worker and bot processes.
type BotConfig struct {
	Token     string
	APIURL    string // base URL of the bot process webhook
	Host      string
	Port      int
	WebAppURL string
}

// RedisConfig holds Redis configuration for the notification queue and catalog cache.
type RedisConfig struct {
	URL             string
	CatalogCacheTTL time.Duration
}

// WorkerConfig holds background worker configuration.
type WorkerConfig struct {
	SweepInterval time.Duration
}

// NotifyConfig holds notification relay retry policy.
type NotifyConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// S3Config holds AWS S3 configuration for confirmation media.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "confirmations/")
}

// MediaConfig holds local media storage configuration.
type MediaConfig struct {
	Dir string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "wb_aggregator"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			LockTimeout:     getEnvAsDuration("DB_LOCK_TIMEOUT", 5*time.Second),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey:         getEnv("API_KEY", ""),
			DevMode:        getEnvAsBool("DEV_MODE", false),
			InitDataMaxAge: getEnvAsDuration("INIT_DATA_MAX_AGE", 24*time.Hour),
			AdminUserIDs:   getEnvAsInt64List("ADMIN_USER_IDS"),
		},
		Bot: BotConfig{
			Token:     getEnv("BOT_TOKEN", ""),
			APIURL:    strings.TrimRight(getEnv("BOT_API_URL", "http://bot:8081"), "/"),
			Host:      getEnv("BOT_HOST", "0.0.0.0"),
			Port:      getEnvAsInt("BOT_PORT", 8081),
			WebAppURL: getEnv("WEBAPP_URL", ""),
		},
		Redis: RedisConfig{
			URL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
			CatalogCacheTTL: getEnvAsDuration("CATALOG_CACHE_TTL", 30*time.Second),
		},
		Worker: WorkerConfig{
			SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),
		},
		Notify: NotifyConfig{
			MaxRetries: getEnvAsInt("NOTIFY_MAX_RETRIES", 5),
			RetryDelay: getEnvAsDuration("NOTIFY_RETRY_DELAY", 2*time.Second),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "confirmations/"),
		},
		Media: MediaConfig{
			Dir: getEnv("MEDIA_DIR", "data/media"),
		},
		Timezone: getEnv("TIMEZONE", "UTC"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration shared by every process.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Bot.Port < 1 || c.Bot.Port > 65535 {
		return fmt.Errorf("invalid bot port: %d", c.Bot.Port)
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}

		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}

		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}

		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Database.LockTimeout < 0 {
		return fmt.Errorf("database lock timeout cannot be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %s", c.Timezone)
	}

	if c.Worker.SweepInterval < time.Second {
		return fmt.Errorf("sweep interval must be at least 1s")
	}

	if c.Notify.MaxRetries < 1 {
		return fmt.Errorf("notify max retries must be at least 1")
	}

	if c.Notify.RetryDelay < 0 {
		return fmt.Errorf("notify retry delay cannot be negative")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	return nil
}

// ValidateAPI checks the settings the API server cannot run without.
func (c *Config) ValidateAPI() error {
	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if c.Bot.Token == "" && !c.Auth.DevMode {
		return fmt.Errorf("bot token is required unless DEV_MODE is enabled")
	}

	return nil
}

// ValidateBot checks the settings the bot process cannot run without.
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" && !c.Auth.DevMode {
		return fmt.Errorf("bot token is required unless DEV_MODE is enabled")
	}

	return nil
}

// Location returns the time zone used to decide the current calendar day.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns the bot webhook listen address.
func (c *BotConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("5m") or plain seconds ("300").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsInt64List skips entries that are not valid integers.
func getEnvAsInt64List(key string) []int64 {
	var ids []int64
	for _, part := range getEnvAsList(key, nil) {
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
