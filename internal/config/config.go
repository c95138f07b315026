package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Google   GoogleConfig
	Storage  StorageConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8001"`
	Env             string        `env:"APP_ENV" envDefault:"dev"` // dev or prod
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TrustedOrigins  []string      `env:"CORS_ORIGIN" envSeparator:"," envDefault:"http://localhost:3000"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
}

type DatabaseConfig struct {
	Driver       string `env:"DB_DRIVER" envDefault:"postgres"` // postgres or sqlite
	Host         string `env:"DB_HOST" envDefault:"localhost"`
	Port         string `env:"DB_PORT" envDefault:"5432"`
	User         string `env:"DB_USER" envDefault:"postgres"`
	Password     string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName       string `env:"DB_NAME" envDefault:"accounts"`
	SSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	SQLitePath   string `env:"DB_SQLITE_PATH" envDefault:"file:accounts.db?_pragma=foreign_keys(1)"`
	MaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Token strategies
const (
	StrategyJWT    = "jwt"
	StrategyPaseto = "paseto"
)

type AuthConfig struct {
	TokenStrategy          string        `env:"AUTH_TOKEN_STRATEGY" envDefault:"jwt"`
	AccessTokenSecret      string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret     string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenDuration    time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenDuration   time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	RevokeOnPasswordChange bool          `env:"AUTH_REVOKE_ON_PASSWORD_CHANGE" envDefault:"false"`
	RateLimitPerWindow     int           `env:"AUTH_RATE_LIMIT" envDefault:"20"`
	RateLimitWindow        time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" envDefault:"15m"`
}

type GoogleConfig struct {
	ClientID      string        `env:"GOOGLE_CLIENT_ID"`
	VerifyTimeout time.Duration `env:"GOOGLE_VERIFY_TIMEOUT" envDefault:"5s"`
}

// StorageConfig points at an S3-compatible bucket that hosts avatars.
type StorageConfig struct {
	Region        string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint      string `env:"S3_ENDPOINT"` // empty for AWS, set for MinIO
	AccessKey     string `env:"S3_ACCESS_KEY"`
	SecretKey     string `env:"S3_SECRET_KEY"`
	Bucket        string `env:"S3_BUCKET" envDefault:"avatars"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

type EmailConfig struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASS"`
}

// Load reads configuration from the environment, after merging a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}

	a := c.Auth
	if a.AccessTokenSecret == "" || a.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required"))
	} else if a.AccessTokenSecret == a.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}

	switch a.TokenStrategy {
	case StrategyJWT:
	case StrategyPaseto:
		// v4.local symmetric keys are exactly 32 bytes
		if len(a.AccessTokenSecret) != 32 || len(a.RefreshTokenSecret) != 32 {
			errs = append(errs, errors.New("paseto token secrets must be exactly 32 bytes"))
		}
	default:
		errs = append(errs, fmt.Errorf("AUTH_TOKEN_STRATEGY must be jwt or paseto, got %q", a.TokenStrategy))
	}

	if a.AccessTokenDuration <= 0 || a.RefreshTokenDuration <= 0 {
		errs = append(errs, errors.New("token expiries must be positive"))
	}

	return errors.Join(errs...)
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// Enabled reports whether SMTP delivery is configured.
func (c *EmailConfig) Enabled() bool {
	return c.SMTPHost != ""
}
