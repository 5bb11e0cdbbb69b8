package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Storage backends understood by the storage package
const (
	BackendMemory   = "memory"
	BackendFS       = "fs"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Display  DisplayConfig
	Content  ContentConfig
	Clock    ClockConfig
	Storage  StorageConfig
	Auth     AuthConfig
	MQTT     MQTTConfig
	LogLevel string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// DisplayConfig describes the panel every frame is rendered for
type DisplayConfig struct {
	Width       int
	Height      int
	DefaultFont string
	FontsPath   string
}

// ContentConfig holds playlist composition settings
type ContentConfig struct {
	PollIntervalMS int
	PollBufferMS   int
	RenderWorkers  int
}

// ClockConfig holds the ambient clock settings
type ClockConfig struct {
	Enabled  bool
	Style    string
	Timezone string
	Hour24   bool
}

// StorageConfig selects and configures the key-value backend
type StorageConfig struct {
	Backend     string
	Path        string
	Redis       RedisConfig
	DatabaseURL string
	S3          S3Config
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// S3Config holds S3 / Spaces configuration
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// AuthConfig holds the credentials accepted on the API. With every field
// empty the API is open.
type AuthConfig struct {
	Token        string
	JWTSecret    string
	APIKeyHash   string
	APIKeyHeader string
}

// MQTTConfig holds refresh notification settings. An empty broker disables
// notifications.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 10),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Display: DisplayConfig{
			Width:       getEnvAsInt("DISPLAY_WIDTH", 28),
			Height:      getEnvAsInt("DISPLAY_HEIGHT", 14),
			DefaultFont: getEnv("DEFAULT_FONT", "dot_5x7"),
			FontsPath:   getEnv("FONTS_PATH", ""),
		},
		Content: ContentConfig{
			PollIntervalMS: getEnvAsInt("POLL_INTERVAL_MS", 30000),
			PollBufferMS:   getEnvAsInt("POLL_BUFFER_MS", 1000),
			RenderWorkers:  getEnvAsInt("RENDER_WORKERS", 4),
		},
		Clock: ClockConfig{
			Enabled:  getEnvAsBool("CLOCK_ENABLED", true),
			Style:    getEnv("CLOCK_STYLE", "digits"),
			Timezone: getEnv("CLOCK_TIMEZONE", "UTC"),
			Hour24:   getEnvAsBool("CLOCK_24H", false),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", BackendMemory),
			Path:    getEnv("STORAGE_PATH", "./data"),
			Redis: RedisConfig{
				Addr:     getRedisAddr(),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvAsInt("REDIS_DB", 0),
			},
			DatabaseURL: getEnv("DATABASE_URL", ""),
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				Region:    getEnv("S3_REGION", "us-east-1"),
				Bucket:    getEnv("S3_BUCKET", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Prefix:    getEnv("S3_PREFIX", "flipdot/"),
			},
		},
		Auth: AuthConfig{
			Token:        getEnv("AUTH_TOKEN", ""),
			JWTSecret:    getEnv("AUTH_JWT_SECRET", ""),
			APIKeyHash:   getEnv("AUTH_API_KEY_HASH", ""),
			APIKeyHeader: getEnv("AUTH_API_KEY_HEADER", "X-API-Key"),
		},
		MQTT: MQTTConfig{
			Broker:   getEnv("MQTT_BROKER", ""),
			Topic:    getEnv("MQTT_TOPIC", "flipdot/refresh"),
			ClientID: getEnv("MQTT_CLIENT_ID", "flipdot-renderer"),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.Content.PollIntervalMS < 1000 {
		return fmt.Errorf("POLL_INTERVAL_MS must be at least 1000, got %d", c.Content.PollIntervalMS)
	}
	if c.Content.PollBufferMS < 0 {
		return fmt.Errorf("POLL_BUFFER_MS must not be negative, got %d", c.Content.PollBufferMS)
	}
	if c.Content.RenderWorkers < 1 {
		return fmt.Errorf("RENDER_WORKERS must be at least 1, got %d", c.Content.RenderWorkers)
	}

	switch c.Clock.Style {
	case "digits", "dots":
	default:
		return fmt.Errorf("unknown CLOCK_STYLE %q", c.Clock.Style)
	}

	switch c.Storage.Backend {
	case BackendMemory, BackendFS, BackendRedis:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as bool or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries
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

// getRedisAddr prefers REDIS_URL (with or without the redis:// scheme) over
// REDIS_ADDR
func getRedisAddr() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return strings.TrimPrefix(url, "redis://")
	}
	return getEnv("REDIS_ADDR", "localhost:6379")
}
