package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/MichaelKMarwa/recupio/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Receipt storage backends.
const (
	StorageMemory = "memory"
	StorageMinIO  = "minio"
	StorageS3     = "s3"
)

// Registry backends for the active-token registry.
const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
)

// Config holds all configuration for the recupio API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"recupio"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"recupio_secret"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"recupio"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	RunMigrations    bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
	SlowQuery        time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`

	// Authentication
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTExpiry        time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	TokenRegistry    string        `env:"TOKEN_REGISTRY" envDefault:"memory"`
	GuestSessionTTL  time.Duration `env:"GUEST_SESSION_TTL" envDefault:"24h"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"24h"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Rate limiting on /auth routes
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Receipt storage
	ReceiptStorage string `env:"RECEIPT_STORAGE" envDefault:"memory"`
	ReceiptBucket  string `env:"RECEIPT_BUCKET" envDefault:"recupio-receipts"`
	InvoiceBucket  string `env:"INVOICE_BUCKET" envDefault:"recupio-invoices"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`

	// Payment provider. The mock provider declines charges above the limit
	// (minor units); zero approves everything.
	PaymentMockLimit int64 `env:"PAYMENT_MOCK_LIMIT" envDefault:"1000000"`

	// Payment provider circuit breaker
	ProviderBreakerTimeout  time.Duration `env:"PROVIDER_BREAKER_TIMEOUT" envDefault:"30s"`
	ProviderBreakerFailures uint32        `env:"PROVIDER_BREAKER_FAILURES" envDefault:"5"`
}

// Load reads configuration from environment variables, after any of the
// given dotenv files.
func Load(dotenvFiles ...string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, dotenvFiles...); err != nil {
		return nil, fmt.Errorf("load recupio config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Outside development, require an explicitly set, strong JWT secret.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}

	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive, got %s", c.JWTExpiry)
	}
	if c.GuestSessionTTL <= 0 {
		return fmt.Errorf("GUEST_SESSION_TTL must be positive, got %s", c.GuestSessionTTL)
	}
	if c.PasswordResetTTL <= 0 {
		return fmt.Errorf("PASSWORD_RESET_TTL must be positive, got %s", c.PasswordResetTTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	switch c.ReceiptStorage {
	case StorageMemory, StorageMinIO, StorageS3:
	default:
		return fmt.Errorf("unknown RECEIPT_STORAGE %q", c.ReceiptStorage)
	}
	if c.ReceiptBucket == "" || c.InvoiceBucket == "" {
		return fmt.Errorf("RECEIPT_BUCKET and INVOICE_BUCKET must not be empty")
	}
	if c.PaymentMockLimit < 0 {
		return fmt.Errorf("PAYMENT_MOCK_LIMIT must not be negative, got %d", c.PaymentMockLimit)
	}
	switch c.TokenRegistry {
	case RegistryMemory, RegistryRedis:
	default:
		return fmt.Errorf("unknown TOKEN_REGISTRY %q", c.TokenRegistry)
	}

	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
