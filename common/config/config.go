package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Storage backend identifiers
const (
	BackendFilesystem = "filesystem"
	BackendS3         = "s3"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	SSLMode     string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object store settings.
// Exactly one backend is active per deployment.
type StorageConfig struct {
	// Backend is "filesystem" or "s3"
	Backend string

	// Filesystem backend
	UploadDir   string
	FallbackDir string

	// S3-compatible backend (MinIO, R2, AWS)
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	S3PresignExpiry time.Duration
}

// RateLimitConfig holds per-user upload rate limiting settings
type RateLimitConfig struct {
	Enabled     bool
	UploadLimit int64
	WindowSec   int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "locker"),
			User:        getEnv("POSTGRES_USER", "locker"),
			Password:    getEnv("POSTGRES_PASSWORD", "locker"),
			SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Backend:         getEnv("STORAGE_BACKEND", BackendFilesystem),
			UploadDir:       getEnv("UPLOAD_DIR", "/app/uploads"),
			FallbackDir:     getEnv("UPLOAD_FALLBACK_DIR", filepath.Join(os.TempDir(), "uploads")),
			S3Endpoint:      getEnv("S3_ENDPOINT", "localhost:9000"),
			S3AccessKey:     getEnv("S3_ACCESS_KEY", "minioadmin"),
			S3SecretKey:     getEnv("S3_SECRET_KEY", "minioadmin"),
			S3Bucket:        getEnv("S3_BUCKET", "locker-evidence"),
			S3UseSSL:        getEnvBool("S3_USE_SSL", false),
			S3PresignExpiry: getEnvDuration("S3_PRESIGN_EXPIRY", 3600*time.Second),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvBool("RATE_LIMIT_ENABLED", false),
			UploadLimit: int64(getEnvInt("RATE_LIMIT_UPLOADS", 60)),
			WindowSec:   getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	switch c.Storage.Backend {
	case BackendFilesystem:
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload dir is required for filesystem backend")
		}
	case BackendS3:
		if c.Storage.S3Endpoint == "" || c.Storage.S3Bucket == "" {
			return fmt.Errorf("s3 endpoint and bucket are required for s3 backend")
		}
		if c.Storage.S3PresignExpiry <= 0 {
			return fmt.Errorf("s3 presign expiry must be positive")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.UploadLimit < 1 {
			return fmt.Errorf("rate limit must be >= 1")
		}
		if c.RateLimit.WindowSec < 1 {
			return fmt.Errorf("rate limit window must be >= 1 second")
		}
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the Redis host:port address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
