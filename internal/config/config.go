package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string
	// WebhookSecret authenticates inbound signup webhooks. The webhook
	// endpoint rejects every request when it is unset.
	WebhookSecret string
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

// DuitkuConfig carries the payment gateway credentials. MerchantCode and
// APIKey are secrets with no defaults; the duitku client refuses to start
// without them.
type DuitkuConfig struct {
	MerchantCode string
	APIKey       string
	BaseURL      string
	SiteURL      string
}

type SendPulseConfig struct {
	ID      string
	Secret  string
	BaseURL string
}

type RedisConfig struct {
	Addr string
}

type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Duitku    DuitkuConfig
	SendPulse SendPulseConfig
	Redis     RedisConfig
}

// Load reads configuration from the environment, optionally preloading a
// .env file. Database settings are required; everything else has
// environment-specific defaults or is validated at first use by its client.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.App.WebhookSecret = os.Getenv("USERS_WEBHOOK_SECRET")

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = getEnv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MINUTES", 30)) * time.Minute
	cfg.Postgres.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations")

	for name, value := range map[string]string{
		"DB_HOST":     cfg.Postgres.Host,
		"DB_USER":     cfg.Postgres.User,
		"DB_PASSWORD": cfg.Postgres.Password,
		"DB_NAME":     cfg.Postgres.DBName,
	} {
		if value == "" {
			return nil, fmt.Errorf("config: %s is required", name)
		}
	}

	cfg.Duitku.MerchantCode = os.Getenv("DUITKU_MERCHANT_CODE")
	cfg.Duitku.APIKey = os.Getenv("DUITKU_API_KEY")
	cfg.Duitku.BaseURL = getEnv("DUITKU_BASE_URL", "https://sandbox.duitku.com")
	cfg.Duitku.SiteURL = getEnv("SITE_URL", "https://tarjuman.org")

	cfg.SendPulse.ID = os.Getenv("SENDPULSE_ID")
	cfg.SendPulse.Secret = os.Getenv("SENDPULSE_SECRET")
	cfg.SendPulse.BaseURL = getEnv("SENDPULSE_BASE_URL", "https://api.sendpulse.com")

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
