package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	pkgconfig "github.com/Checker-Finance/trading-adapters/pkg/config"
)

const (
	CredentialsFromEnv = "env"
	CredentialsFromAWS = "aws"
)

// Config holds the runtime configuration for the degiro-adapter.
type Config struct {
	ServiceName string `validate:"required"`
	Env         string `validate:"required"`
	Venue       string
	LogLevel    string

	DegiroBaseURL   string        `validate:"required,url"`
	DegiroTimeout   time.Duration `validate:"gt=0"`
	DegiroUserAgent string

	// Credentials come from the environment or from {env}/degiro/{account} in AWS Secrets Manager.
	CredentialsSource string `validate:"oneof=env aws"`
	Account           string `validate:"required"`
	Username          string `validate:"required_if=CredentialsSource env"`
	Password          string `validate:"required_if=CredentialsSource env"`
	TOTPSecret        string `validate:"required_if=CredentialsSource env"`
	AWSRegion         string `validate:"required_if=CredentialsSource aws"`
	SecretsCacheTTL   time.Duration

	// An empty RedisAddr keeps product details in process memory.
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	ProductCacheTTL time.Duration `validate:"gt=0"`
	CleanupFreq     time.Duration

	// An empty MetricsAddr disables the /metrics listener.
	MetricsAddr string
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:       pkgconfig.GetEnv("SERVICE_NAME", "degiro-adapter"),
		Venue:             "degiro",
		Env:               pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:          pkgconfig.GetEnv("LOG_LEVEL", "info"),
		DegiroBaseURL:     pkgconfig.GetEnv("DEGIRO_BASE_URL", "https://trader.degiro.nl"),
		DegiroTimeout:     pkgconfig.GetEnvDuration("DEGIRO_HTTP_TIMEOUT", 30*time.Second),
		DegiroUserAgent:   pkgconfig.GetEnv("DEGIRO_USER_AGENT", ""),
		CredentialsSource: pkgconfig.GetEnv("DEGIRO_CREDENTIALS_SOURCE", CredentialsFromEnv),
		Account:           pkgconfig.GetEnv("DEGIRO_ACCOUNT", "default"),
		Username:          pkgconfig.GetEnv("DEGIRO_USERNAME", ""),
		Password:          pkgconfig.GetEnvSecret("DEGIRO_PASSWORD"),
		TOTPSecret:        pkgconfig.GetEnvSecret("DEGIRO_TOTP_SECRET"),
		AWSRegion:         pkgconfig.GetEnv("AWS_REGION", "us-east-2"),
		SecretsCacheTTL:   pkgconfig.GetEnvDuration("SECRETS_CACHE_TTL", 15*time.Minute),
		RedisAddr:         pkgconfig.GetEnv("REDIS_ADDR", ""),
		RedisDB:           pkgconfig.GetEnvInt("REDIS_DB", 0),
		RedisPass:         pkgconfig.GetEnvSecret("REDIS_PASS"),
		ProductCacheTTL:   pkgconfig.GetEnvDuration("PRODUCT_CACHE_TTL", 24*time.Hour),
		CleanupFreq:       pkgconfig.GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),
		MetricsAddr:       pkgconfig.GetEnv("METRICS_ADDR", ":9090"),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
