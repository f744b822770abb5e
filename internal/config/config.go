package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration.
// Populated from environment variables.
type Config struct {
	App    AppConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	JWT    JWTConfig
	MinIO  MinIOConfig
	Import ImportConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type MinIOConfig struct {
	Endpoint  string // localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool // false for local, true for production
}

// ImportConfig tunes the bulk import pipeline.
type ImportConfig struct {
	SessionTTL        time.Duration // parse -> commit window
	SessionSweep      time.Duration // in-memory store sweep interval
	SessionBackend    string        // memory | redis
	MaxArchiveSize    int64         // total ZIP bytes
	MaxImageSize      int64         // per-file bytes inside the ZIP
	PreviewRows       int           // rows returned by the parse endpoint
	UploadConcurrency int           // concurrent image uploads per commit
	MarkupPercent     float64       // platform markup applied to finalPrice
	AdjustmentPercent float64       // dynamic pricing adjustment
	DefaultCategoryID string        // fallback when a row has no resolvable category
	DefaultCurrency   string
	MaxRows           int // rows per import file
}

// Load reads config from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Marketplace Import API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "marketplace"),
			Timeout:  time.Duration(getEnvInt("MONGO_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnv("MINIO_BUCKET", "marketplace"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		Import: ImportConfig{
			SessionTTL:        time.Duration(getEnvInt("IMPORT_SESSION_TTL_MINUTES", 15)) * time.Minute,
			SessionSweep:      time.Duration(getEnvInt("IMPORT_SESSION_SWEEP_MINUTES", 5)) * time.Minute,
			SessionBackend:    getEnv("IMPORT_SESSION_BACKEND", "memory"),
			MaxArchiveSize:    int64(getEnvInt("IMPORT_MAX_ARCHIVE_MB", 50)) * 1024 * 1024,
			MaxImageSize:      int64(getEnvInt("IMPORT_MAX_IMAGE_MB", 5)) * 1024 * 1024,
			PreviewRows:       getEnvInt("IMPORT_PREVIEW_ROWS", 20),
			UploadConcurrency: getEnvInt("IMPORT_UPLOAD_CONCURRENCY", 5),
			MarkupPercent:     getEnvFloat("IMPORT_MARKUP_PERCENT", 10),
			AdjustmentPercent: getEnvFloat("IMPORT_ADJUSTMENT_PERCENT", 0),
			DefaultCategoryID: getEnv("IMPORT_DEFAULT_CATEGORY_ID", ""),
			DefaultCurrency:   getEnv("IMPORT_DEFAULT_CURRENCY", "USD"),
			MaxRows:           getEnvInt("IMPORT_MAX_ROWS", 1000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks config for obvious misconfiguration.
func (c *Config) Validate() error {
	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.MinIO.SecretKey == "minioadmin" {
			fmt.Println("WARNING: MinIO secret key is the default - image uploads are not secured")
		}
	}

	switch c.Import.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("IMPORT_SESSION_BACKEND must be 'memory' or 'redis', got %q", c.Import.SessionBackend)
	}

	if c.Import.SessionTTL <= 0 {
		return fmt.Errorf("IMPORT_SESSION_TTL_MINUTES must be positive")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
