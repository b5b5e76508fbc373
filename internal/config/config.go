// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL           string `yaml:"url"`
	MaxConns      int    `yaml:"max_conns"`
	MigrationsDir string `yaml:"migrations_dir"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	// PEM-encoded RSA public key used to verify access tokens issued by the
	// users service.
	PublicKeyFile string `yaml:"public_key_file"`
	PublicKeyPEM  string `yaml:"public_key_pem"`
}

type StripeConfig struct {
	SecretKey     string        `yaml:"secret_key"`
	WebhookSecret string        `yaml:"webhook_secret"`
	PriceID       string        `yaml:"price_id"`
	SuccessURL    string        `yaml:"success_url"`
	CancelURL     string        `yaml:"cancel_url"`
	PriceAmount   int64         `yaml:"price_amount"` // minor units, informational
	BillingPeriod time.Duration `yaml:"billing_period"`
	GracePeriod   time.Duration `yaml:"grace_period"`
}

type UsersServiceConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
}

type Config struct {
	Server    ServerConfig       `yaml:"server"`
	Log       LogConfig          `yaml:"log"`
	Database  DatabaseConfig     `yaml:"database"`
	Redis     RedisConfig        `yaml:"redis"`
	Auth      AuthConfig         `yaml:"auth"`
	Stripe    StripeConfig       `yaml:"stripe"`
	Users     UsersServiceConfig `yaml:"users"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8083
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "migrations"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Stripe.BillingPeriod <= 0 {
		cfg.Stripe.BillingPeriod = 30 * 24 * time.Hour
	}
	if cfg.Stripe.GracePeriod < 0 {
		cfg.Stripe.GracePeriod = 0
	}
	if cfg.Users.Timeout <= 0 {
		cfg.Users.Timeout = 5 * time.Second
	}
	if cfg.Users.RetryInterval <= 0 {
		cfg.Users.RetryInterval = time.Minute
	}
	if cfg.Users.MaxAttempts <= 0 {
		cfg.Users.MaxAttempts = 10
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("stripe.secret_key is required")
	}
	if cfg.Stripe.WebhookSecret == "" {
		return nil, errors.New("stripe.webhook_secret is required")
	}
	if cfg.Stripe.PriceID == "" {
		return nil, errors.New("stripe.price_id is required")
	}
	if cfg.Auth.PublicKeyFile == "" && cfg.Auth.PublicKeyPEM == "" {
		return nil, errors.New("auth.public_key_file or auth.public_key_pem is required")
	}
	if cfg.Users.Endpoint == "" {
		return nil, errors.New("users.endpoint is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// PublicKey returns the PEM bytes of the token verification key, reading the
// configured file if the key is not inlined.
func (c *Config) PublicKey() ([]byte, error) {
	if c.Auth.PublicKeyPEM != "" {
		return []byte(c.Auth.PublicKeyPEM), nil
	}
	b, err := os.ReadFile(c.Auth.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read auth public key: %w", err)
	}
	return b, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
