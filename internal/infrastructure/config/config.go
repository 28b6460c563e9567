package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

var (
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
	ErrJWTSecretNotSet       = errors.New("JWT_SECRET is required")
	ErrEncryptionKeyNotSet   = errors.New("MFA_ENCRYPTION_KEY is required")
	ErrInvalidTOTPSettings   = errors.New("invalid TOTP settings")
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerPort int `env:"PORT" envDefault:"8080"`

	// StorageBackend selects where MFA records live: redis, postgres or memory
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`

	// Redis configuration
	RedisURL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisRetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RedisRetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	RedisConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`

	// Database configuration
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"owner"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"ownerTest"`
	DBName     string `env:"DB_NAME" envDefault:"users"`

	// JWTSecret verifies the HS256 bearer tokens of calling services
	JWTSecret string `env:"JWT_SECRET"`

	// TOTP configuration
	TOTPIssuer string `env:"TOTP_ISSUER" envDefault:"MFA Service"`
	TOTPPeriod uint   `env:"TOTP_PERIOD" envDefault:"30"`
	TOTPSkew   uint   `env:"TOTP_SKEW" envDefault:"1"`
	TOTPDigits int    `env:"TOTP_DIGITS" envDefault:"6"`

	// EncryptionKey seals TOTP secrets at rest
	EncryptionKey string `env:"MFA_ENCRYPTION_KEY"`

	// Rate limiting of the /api routes, per client IP
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// SeedUsers are created at startup by the memory backend
	SeedUsers []string `env:"SEED_USERS" envSeparator:","`
}

// LoadConfig loads configuration from the environment, reading .env first if present
func LoadConfig() (*Config, error) {
	cfg, err := ParseEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv reads .env and the environment without validating the result.
// Tools that only need part of the configuration use it directly.
func ParseEnv() (*Config, error) {
	// Load .env from project root
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the env tags cannot express
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageRedis, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, c.StorageBackend)
	}
	if c.JWTSecret == "" {
		return ErrJWTSecretNotSet
	}
	if c.EncryptionKey == "" {
		return ErrEncryptionKeyNotSet
	}
	if c.TOTPPeriod == 0 || c.TOTPSkew > 3 || (c.TOTPDigits != 6 && c.TOTPDigits != 8) {
		return ErrInvalidTOTPSettings
	}
	return nil
}

// PostgresDSN builds the pgx connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// PostgresURL builds the URL form used by golang-migrate
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}
