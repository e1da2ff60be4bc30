package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DROPSD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DROPSD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Source.BaseURL, "DROPSD_SOURCE_BASE_URL")
	setBool(&cfg.Source.OnlyOpen, "DROPSD_SOURCE_ONLY_OPEN")
	setStr(&cfg.Source.Sport, "DROPSD_SOURCE_SPORT")
	setStr(&cfg.Source.Regions, "DROPSD_SOURCE_REGIONS")

	setInt(&cfg.Refresh.IntervalSeconds, "DROPSD_REFRESH_INTERVAL_SECONDS")

	setStr(&cfg.Storage.Backend, "DROPSD_STORAGE_BACKEND")
	setStr(&cfg.Storage.Path, "DROPSD_STORAGE_PATH")

	setStr(&cfg.Redis.Addr, "DROPSD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DROPSD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DROPSD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DROPSD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DROPSD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DROPSD_REDIS_TLS_ENABLED")

	setStr(&cfg.Wallet.Address, "DROPSD_WALLET_ADDRESS")
	setStr(&cfg.Wallet.RPCURL, "DROPSD_WALLET_RPC_URL")
	setStr(&cfg.Wallet.TokenAddress, "DROPSD_WALLET_TOKEN_ADDRESS")
	setInt(&cfg.Wallet.TokenDecimals, "DROPSD_WALLET_TOKEN_DECIMALS")

	setFloat64(&cfg.Investment.Amount, "DROPSD_INVESTMENT_AMOUNT")

	setInt(&cfg.Export.StepDelayMillis, "DROPSD_EXPORT_STEP_DELAY_MS")
	setStr(&cfg.Export.OutputDir, "DROPSD_EXPORT_OUTPUT_DIR")

	setStr(&cfg.S3.Endpoint, "DROPSD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DROPSD_S3_REGION")
	setStr(&cfg.S3.Bucket, "DROPSD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DROPSD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DROPSD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DROPSD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DROPSD_S3_FORCE_PATH_STYLE")

	setStr(&cfg.Notify.DiscordWebhook, "DROPSD_NOTIFY_DISCORD_WEBHOOK")
	setStr(&cfg.Notify.TelegramToken, "DROPSD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DROPSD_NOTIFY_TELEGRAM_CHAT_ID")

	setStr(&cfg.Mode, "DROPSD_MODE")
	setStr(&cfg.LogLevel, "DROPSD_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
