package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/plansync/internal/common"
	"github.com/Veraticus/plansync/internal/remote"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	Logging  LoggingConfig
	Database DatabaseConfig
	Currency CurrencyConfig
	Remote   RemoteConfig
	Rates    RatesConfig
	Sync     SyncConfig
	Metrics  MetricsConfig
}

// LoggingConfig controls the global slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path      string
	BackupDir string
}

// CurrencyConfig holds the user's base currency.
type CurrencyConfig struct {
	Base string
}

// RemoteConfig holds the sync server settings.
type RemoteConfig struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	BreakerTimeout  time.Duration
	BreakerFailures uint32
}

// Client returns the remote client configuration.
func (r RemoteConfig) Client() remote.Config {
	return remote.Config{
		BaseURL:         r.BaseURL,
		Timeout:         r.Timeout,
		BreakerTimeout:  r.BreakerTimeout,
		BreakerFailures: r.BreakerFailures,
	}
}

// RatesConfig holds the exchange rate provider settings.
type RatesConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SyncConfig tunes sync retries and the watch interval.
type SyncConfig struct {
	Interval     time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Retry returns the retry options for remote calls.
func (s SyncConfig) Retry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  s.MaxAttempts,
		InitialDelay: s.InitialDelay,
		MaxDelay:     s.MaxDelay,
	}.WithDefaults()
}

// MetricsConfig selects where metrics are exposed.
type MetricsConfig struct {
	Listen   string
	Textfile string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", "~/.local/share/plansync/plansync.db")
	v.SetDefault("database.backup_dir", "")
	v.SetDefault("currency.base", "USD")
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.breaker_timeout", 30*time.Second)
	v.SetDefault("remote.breaker_failures", 5)
	v.SetDefault("rates.base_url", "https://api.coinbase.com")
	v.SetDefault("rates.timeout", 15*time.Second)
	v.SetDefault("sync.interval", 15*time.Minute)
	v.SetDefault("sync.max_attempts", 3)
	v.SetDefault("sync.initial_delay", 200*time.Millisecond)
	v.SetDefault("sync.max_delay", 5*time.Second)
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.textfile", "")
}

// Load builds a Config from v, applying defaults and validating values.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path:      ExpandPath(v.GetString("database.path")),
			BackupDir: ExpandPath(v.GetString("database.backup_dir")),
		},
		Currency: CurrencyConfig{
			Base: strings.ToUpper(strings.TrimSpace(v.GetString("currency.base"))),
		},
		Remote: RemoteConfig{
			BaseURL:         v.GetString("remote.base_url"),
			Token:           v.GetString("remote.token"),
			Timeout:         v.GetDuration("remote.timeout"),
			BreakerTimeout:  v.GetDuration("remote.breaker_timeout"),
			BreakerFailures: v.GetUint32("remote.breaker_failures"),
		},
		Rates: RatesConfig{
			BaseURL: v.GetString("rates.base_url"),
			Timeout: v.GetDuration("rates.timeout"),
		},
		Sync: SyncConfig{
			Interval:     v.GetDuration("sync.interval"),
			MaxAttempts:  v.GetInt("sync.max_attempts"),
			InitialDelay: v.GetDuration("sync.initial_delay"),
			MaxDelay:     v.GetDuration("sync.max_delay"),
		},
		Metrics: MetricsConfig{
			Listen:   v.GetString("metrics.listen"),
			Textfile: ExpandPath(v.GetString("metrics.textfile")),
		},
	}

	if cfg.Database.BackupDir == "" {
		cfg.Database.BackupDir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if len(c.Currency.Base) != 3 {
		return fmt.Errorf("%w: currency.base %q is not a 3-letter code", common.ErrInvalidConfig, c.Currency.Base)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("%w: sync.interval must be positive", common.ErrInvalidConfig)
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("%w: sync.max_attempts must be at least 1", common.ErrInvalidConfig)
	}
	return nil
}

// RequireRemote reports whether the sync server is configured.
func (c *Config) RequireRemote() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("%w: remote.base_url", common.ErrMissingConfig)
	}
	return nil
}
