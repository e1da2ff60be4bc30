// Package config defines the top-level configuration for the drops engine
// and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DROPSD_* environment variables.
type Config struct {
	Source     SourceConfig     `toml:"source"`
	Refresh    RefreshConfig    `toml:"refresh"`
	Storage    StorageConfig    `toml:"storage"`
	Redis      RedisConfig      `toml:"redis"`
	Wallet     WalletConfig     `toml:"wallet"`
	Investment InvestmentConfig `toml:"investment"`
	Export     ExportConfig     `toml:"export"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// SourceConfig holds the market backend endpoint and per-tab query filters.
type SourceConfig struct {
	BaseURL        string `toml:"base_url"`
	OnlyOpen       bool   `toml:"only_open"`
	Sport          string `toml:"sport"`
	Regions        string `toml:"regions"`
	PrimaryLimit   int    `toml:"primary_limit"`
	SecondaryLimit int    `toml:"secondary_limit"`
}

// RefreshConfig controls the periodic market refresh.
type RefreshConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// StorageConfig selects the state persistence backend.
type StorageConfig struct {
	// Backend is "file", "redis", or "memory".
	Backend string `toml:"backend"`
	// Path is the state file location for the file backend.
	Path string `toml:"path"`
}

// RedisConfig holds Redis connection parameters for the redis backend.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// WalletConfig identifies the funding wallet and the token balance to read.
// The engine never holds keys.
type WalletConfig struct {
	Address       string `toml:"address"`
	RPCURL        string `toml:"rpc_url"`
	TokenAddress  string `toml:"token_address"`
	TokenDecimals int    `toml:"token_decimals"`
}

// InvestmentConfig seeds the total investment for headless export runs.
type InvestmentConfig struct {
	Amount float64 `toml:"amount"`
}

// ExportConfig controls the export pipeline and local payload output.
type ExportConfig struct {
	StepDelayMillis int    `toml:"step_delay_ms"`
	OutputDir       string `toml:"output_dir"`
}

// S3Config holds S3-compatible object storage parameters for payload
// archival. An empty bucket disables the S3 sink.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials and the event filter.
type NotifyConfig struct {
	DiscordWebhook string   `toml:"discord_webhook"`
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Events         []string `toml:"events"`
}

// Defaults returns the built-in configuration: the production backend,
// hourly refresh, a local state file, and USDT on Arbitrum for the balance.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			BaseURL:        "https://copypools-production.up.railway.app",
			OnlyOpen:       true,
			Sport:          "soccer_epl",
			Regions:        "us,uk,eu,au",
			PrimaryLimit:   1000,
			SecondaryLimit: 500,
		},
		Refresh: RefreshConfig{
			IntervalSeconds: 3600,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    "dropsd-state.json",
		},
		Wallet: WalletConfig{
			// USDT contract on Arbitrum One.
			TokenAddress:  "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
			TokenDecimals: 6,
		},
		Export: ExportConfig{
			StepDelayMillis: 1000,
		},
		Mode:     "watch",
		LogLevel: "info",
	}
}

// RefreshInterval returns the refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// StepDelay returns the simulated export step latency as a duration.
func (c *Config) StepDelay() time.Duration {
	return time.Duration(c.Export.StepDelayMillis) * time.Millisecond
}

// Validate checks the configuration for internal consistency. It should be
// called after Load.
func (c *Config) Validate() error {
	switch c.Mode {
	case "watch", "export":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Source.BaseURL == "" {
		return fmt.Errorf("config: source.base_url is required")
	}
	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("config: refresh.interval_seconds must be positive")
	}

	switch c.Storage.Backend {
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unsupported storage backend %q", c.Storage.Backend)
	}

	if c.Wallet.Address != "" && c.Wallet.RPCURL == "" {
		return fmt.Errorf("config: wallet.rpc_url is required when wallet.address is set")
	}
	if c.Export.StepDelayMillis < 0 {
		return fmt.Errorf("config: export.step_delay_ms must not be negative")
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		return fmt.Errorf("config: s3.region is required when s3.bucket is set")
	}

	return nil
}
