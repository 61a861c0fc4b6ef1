package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Sales    SalesConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type UploadConfig struct {
	MaxBytes     int64
	Workers      int
	BatchSize    int
	ParseTimeout time.Duration
}

// SessionConfig bounds the in-memory datasets kept per browser session.
type SessionConfig struct {
	Capacity     int
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

type SalesConfig struct {
	// PromoProduct is the product-name fragment split out as its own segment.
	PromoProduct string
	DetailLimit  int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit  bool
	RateLimitRPS     int
	RateLimitBurst   int
	RateLimitClients int
	RateLimitIdle    time.Duration
	AllowedOrigins   []string
	TrustedProxies   []string
}

// Load reads the environment. A .env file in the working directory, or the
// file named by ENV_FILE, is applied first without overriding real variables.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnvString("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			MaxBytes:     getEnvInt64("UPLOAD_MAX_BYTES", 32<<20),
			Workers:      getEnvInt("INGEST_WORKERS", 4),
			BatchSize:    getEnvInt("INGEST_BATCH_SIZE", 5000),
			ParseTimeout: getEnvDuration("INGEST_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			Capacity:     getEnvInt("SESSION_CAPACITY", 64),
			TTL:          getEnvDuration("SESSION_TTL", 2*time.Hour),
			CookieName:   getEnvString("SESSION_COOKIE_NAME", "sales_session"),
			CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		},
		Sales: SalesConfig{
			PromoProduct: getEnvString("PROMO_PRODUCT", "한미플루"),
			DetailLimit:  getEnvInt("DETAIL_LIMIT", 500),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit:  getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:     getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:   getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			RateLimitClients: getEnvInt("SECURITY_RATE_LIMIT_CLIENTS", 10_000),
			RateLimitIdle:    getEnvDuration("SECURITY_RATE_LIMIT_IDLE", 10*time.Minute),
			AllowedOrigins:   getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:   getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload size limit must be positive")
	}

	if c.Upload.Workers <= 0 || c.Upload.BatchSize <= 0 {
		return fmt.Errorf("ingest workers and batch size must be positive")
	}

	if c.Session.Capacity <= 0 {
		return fmt.Errorf("session capacity must be positive, got %d", c.Session.Capacity)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}

	if strings.TrimSpace(c.Sales.PromoProduct) == "" {
		return fmt.Errorf("promo product cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Security.RateLimitClients <= 0 {
		return fmt.Errorf("rate limit client capacity must be positive")
	}

	if c.Security.RateLimitIdle <= 0 {
		return fmt.Errorf("rate limit idle timeout must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func contains(slice []string, item string) bool {
	return slices.Contains(slice, item)
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
