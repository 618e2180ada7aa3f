package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies OPENBET_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known OPENBET_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Kalshi ──
	setStr(&cfg.Kalshi.ApiKeyID, "OPENBET_KALSHI_API_KEY_ID")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "OPENBET_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "OPENBET_KALSHI_BASE_URL")
	setInt(&cfg.Kalshi.EventLimit, "OPENBET_KALSHI_EVENT_LIMIT")

	// ── Estimators ──
	// Panel membership lives in the TOML file; only the per-provider secrets
	// are injectable. The variable name carries the provider, e.g.
	// OPENBET_ESTIMATOR_OPENAI_API_KEY.
	for i := range cfg.Estimators {
		key := "OPENBET_ESTIMATOR_" + envToken(cfg.Estimators[i].Provider) + "_API_KEY"
		setStr(&cfg.Estimators[i].ApiKey, key)
	}

	// ── Consensus ──
	setDuration(&cfg.Consensus.ProviderTimeout, "OPENBET_CONSENSUS_PROVIDER_TIMEOUT")
	setFloat64(&cfg.Consensus.PromoteThreshold, "OPENBET_CONSENSUS_PROMOTE_THRESHOLD")
	setDuration(&cfg.Consensus.CacheTTL, "OPENBET_CONSENSUS_CACHE_TTL")
	setInt(&cfg.Consensus.Concurrency, "OPENBET_CONSENSUS_CONCURRENCY")
	setInt(&cfg.Consensus.MaxPairs, "OPENBET_CONSENSUS_MAX_PAIRS")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.PriceSumTolerance, "OPENBET_ARBITRAGE_PRICE_SUM_TOLERANCE")
	setFloat64(&cfg.Arbitrage.MinConstraintConfidence, "OPENBET_ARBITRAGE_MIN_CONSTRAINT_CONFIDENCE")
	setDuration(&cfg.Arbitrage.SolveTimeout, "OPENBET_ARBITRAGE_SOLVE_TIMEOUT")
	setBool(&cfg.Arbitrage.RequireVerified, "OPENBET_ARBITRAGE_REQUIRE_VERIFIED")

	// ── Trading ──
	setFloat64(&cfg.Trading.EntryThreshold, "OPENBET_TRADING_ENTRY_THRESHOLD")
	setFloat64(&cfg.Trading.ExitThreshold, "OPENBET_TRADING_EXIT_THRESHOLD")
	setInt(&cfg.Trading.BasePosition, "OPENBET_TRADING_BASE_POSITION")
	setInt(&cfg.Trading.MaxPosition, "OPENBET_TRADING_MAX_POSITION")
	setFloat64(&cfg.Trading.ScalingFactor, "OPENBET_TRADING_SCALING_FACTOR")
	setFloat64(&cfg.Trading.MinLiquidity, "OPENBET_TRADING_MIN_LIQUIDITY")
	setFloat64(&cfg.Trading.MinVolume24h, "OPENBET_TRADING_MIN_VOLUME_24H")
	setFloat64(&cfg.Trading.MaxSpread, "OPENBET_TRADING_MAX_SPREAD")
	setInt64(&cfg.Trading.MinOpenInterest, "OPENBET_TRADING_MIN_OPEN_INTEREST")
	setInt(&cfg.Trading.MaxPerMarket, "OPENBET_TRADING_MAX_PER_MARKET")
	setInt(&cfg.Trading.MaxTotalExposure, "OPENBET_TRADING_MAX_TOTAL_EXPOSURE")
	setInt(&cfg.Trading.MaxDailyTrades, "OPENBET_TRADING_MAX_DAILY_TRADES")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "OPENBET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "OPENBET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "OPENBET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "OPENBET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "OPENBET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "OPENBET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "OPENBET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "OPENBET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "OPENBET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "OPENBET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "OPENBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OPENBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OPENBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OPENBET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OPENBET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OPENBET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "OPENBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "OPENBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "OPENBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "OPENBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "OPENBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "OPENBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "OPENBET_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.ArchiveRetentionDays, "OPENBET_S3_ARCHIVE_RETENTION_DAYS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "OPENBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "OPENBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "OPENBET_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "OPENBET_MODE")
	setStr(&cfg.LogLevel, "OPENBET_LOG_LEVEL")
}

// envToken upper-cases a provider name for use in an env variable name.
func envToken(provider string) string {
	out := make([]byte, 0, len(provider))
	for i := 0; i < len(provider); i++ {
		c := provider[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
