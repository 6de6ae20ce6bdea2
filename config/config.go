package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mockbank/internal/core/domain"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsProduction reports whether operator-only surfaces must stay disabled.
func (s ServerConfig) IsProduction() bool {
	return s.Mode == "release"
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // trace, debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// Wallet id generation modes.
const (
	WalletIDModeURI    = "uri"
	WalletIDModeRandom = "random"
)

type LedgerConfig struct {
	RefCountryCode string `mapstructure:"ref_country_code"` // first block of the external reference, e.g. PK93
	RefBankCode    string `mapstructure:"ref_bank_code"`    // second block, e.g. ABPA
	RefAttempts    int    `mapstructure:"ref_attempts"`
	WalletIDMode   string `mapstructure:"wallet_id_mode"`
	WalletBaseURL  string `mapstructure:"wallet_base_url"`
}

type WebhookConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URLs          []string      `mapstructure:"urls"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Source        string        `mapstructure:"source"`
	Secret        string        `mapstructure:"secret"`
	Workers       int           `mapstructure:"workers"`
	QueueSize     int           `mapstructure:"queue_size"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MBK_.
// Nested keys use underscore: MBK_DATABASE_HOST, MBK_WEBHOOK_URLS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("MBK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The file is optional; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Webhook.URLs = cleanURLs(cfg.Webhook.URLs)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "mockbank")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("storage.driver", StoragePostgres)

	v.SetDefault("ledger.ref_country_code", "PK93")
	v.SetDefault("ledger.ref_bank_code", "ABPA")
	v.SetDefault("ledger.ref_attempts", 3)
	v.SetDefault("ledger.wallet_id_mode", WalletIDModeURI)
	v.SetDefault("ledger.wallet_base_url", "https://wallet.mockbank.dev")

	v.SetDefault("webhook.enabled", true)
	v.SetDefault("webhook.urls", []string{})
	v.SetDefault("webhook.retry_attempts", 3)
	v.SetDefault("webhook.retry_delay", "2s")
	v.SetDefault("webhook.timeout", "5s")
	v.SetDefault("webhook.source", "mockbank")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("webhook.workers", 4)
	v.SetDefault("webhook.queue_size", 256)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 120)
	v.SetDefault("ratelimit.window", "1m")
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("storage.driver: unsupported value %q", c.Storage.Driver)
	}

	switch c.Ledger.WalletIDMode {
	case WalletIDModeURI, WalletIDModeRandom:
	default:
		return fmt.Errorf("ledger.wallet_id_mode: unsupported value %q", c.Ledger.WalletIDMode)
	}

	if err := domain.ValidateRefPrefix(c.Ledger.RefCountryCode, c.Ledger.RefBankCode); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if c.Ledger.RefAttempts < 1 {
		return errors.New("ledger.ref_attempts must be at least 1")
	}
	if c.Webhook.RetryAttempts < 1 {
		return errors.New("webhook.retry_attempts must be at least 1")
	}
	if c.Webhook.Timeout <= 0 {
		return errors.New("webhook.timeout must be positive")
	}
	if c.Webhook.RetryDelay < 0 {
		return errors.New("webhook.retry_delay must not be negative")
	}
	if c.Webhook.Workers < 1 || c.Webhook.QueueSize < 1 {
		return errors.New("webhook: workers and queue_size must be at least 1")
	}
	return nil
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
