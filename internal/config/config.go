// Package config defines the top-level configuration for the openbet engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by OPENBET_* environment variables.
type Config struct {
	Kalshi     KalshiConfig      `toml:"kalshi"`
	Estimators []EstimatorConfig `toml:"estimators"`
	Consensus  ConsensusConfig   `toml:"consensus"`
	Arbitrage  ArbitrageConfig   `toml:"arbitrage"`
	Trading    TradingConfig     `toml:"trading"`
	Postgres   PostgresConfig    `toml:"postgres"`
	Redis      RedisConfig       `toml:"redis"`
	S3         S3Config          `toml:"s3"`
	Notify     NotifyConfig      `toml:"notify"`
	Mode       string            `toml:"mode"`
	LogLevel   string            `toml:"log_level"`
}

// KalshiConfig holds Kalshi exchange API credentials.
type KalshiConfig struct {
	ApiKeyID          string `toml:"api_key_id"`
	RsaPrivateKeyPath string `toml:"rsa_private_key_path"`
	BaseURL           string `toml:"base_url"`
	// EventLimit caps how many open events a batch mode pulls per run.
	EventLimit int `toml:"event_limit"`
}

// EstimatorConfig holds one LLM provider entry. Multiple entries form the
// consensus panel; the first entry doubles as the screening provider.
type EstimatorConfig struct {
	Provider          string  `toml:"provider"`
	Name              string  `toml:"name"`
	Model             string  `toml:"model"`
	ApiKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	MaxTokens         int     `toml:"max_tokens"`
	TimeoutSec        int     `toml:"timeout_sec"`
	RequestsPerMinute float64 `toml:"requests_per_minute"`
}

// ConsensusConfig holds consensus engine parameters.
type ConsensusConfig struct {
	ProviderTimeout duration `toml:"provider_timeout"`
	// PromoteThreshold is the screening score at or above which a pair is
	// promoted to full two-round analysis.
	PromoteThreshold float64  `toml:"promote_threshold"`
	CacheTTL         duration `toml:"cache_ttl"`
	// Concurrency bounds how many pairs or events a batch mode works on at
	// once.
	Concurrency int `toml:"concurrency"`
	// MaxPairs caps the candidate pairs produced by one screening run.
	MaxPairs int `toml:"max_pairs"`
}

// ArbitrageConfig holds arbitrage detection parameters.
type ArbitrageConfig struct {
	PriceSumTolerance       float64  `toml:"price_sum_tolerance"`
	MinConstraintConfidence float64  `toml:"min_constraint_confidence"`
	SolveTimeout            duration `toml:"solve_timeout"`
	// RequireVerified restricts detection to human-verified verdicts.
	RequireVerified bool `toml:"require_verified"`
}

// TradingConfig holds signal generation, sizing, and risk parameters.
type TradingConfig struct {
	EntryThreshold float64 `toml:"entry_threshold"`
	ExitThreshold  float64 `toml:"exit_threshold"`
	BasePosition   int     `toml:"base_position"`
	MaxPosition    int     `toml:"max_position"`
	ScalingFactor  float64 `toml:"scaling_factor"`

	MinLiquidity     float64 `toml:"min_liquidity"`
	MinVolume24h     float64 `toml:"min_volume_24h"`
	MaxSpread        float64 `toml:"max_spread"`
	MinOpenInterest  int64   `toml:"min_open_interest"`
	MaxPerMarket     int     `toml:"max_per_market"`
	MaxTotalExposure int     `toml:"max_total_exposure"`
	MaxDailyTrades   int     `toml:"max_daily_trades"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// ArchiveRetentionDays: archive mode moves records older than this many
	// days to object storage.
	ArchiveRetentionDays int `toml:"archive_retention_days"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:    "https://api.elections.kalshi.com/trade-api/v2",
			EventLimit: 200,
		},
		Consensus: ConsensusConfig{
			ProviderTimeout:  duration{90 * time.Second},
			PromoteThreshold: 0.5,
			CacheTTL:         duration{24 * time.Hour},
			Concurrency:      4,
			MaxPairs:         500,
		},
		Arbitrage: ArbitrageConfig{
			PriceSumTolerance:       0.01,
			MinConstraintConfidence: 0.5,
			SolveTimeout:            duration{10 * time.Second},
			RequireVerified:         true,
		},
		Trading: TradingConfig{
			EntryThreshold:   0.05,
			ExitThreshold:    0.01,
			BasePosition:     10,
			MaxPosition:      100,
			ScalingFactor:    1.5,
			MinLiquidity:     100,
			MinVolume24h:     50,
			MaxSpread:        0.10,
			MinOpenInterest:  100,
			MaxPerMarket:     200,
			MaxTotalExposure: 1000,
			MaxDailyTrades:   10,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "openbet",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:             "http://localhost:9000",
			Region:               "us-east-1",
			Bucket:               "openbet-data",
			UseSSL:               false,
			ForcePathStyle:       true,
			ArchiveRetentionDays: 90,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"screen":  true,
	"analyze": true,
	"detect":  true,
	"scan":    true,
	"exits":   true,
	"report":  true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// needsEstimators reports whether mode calls the LLM panel.
func needsEstimators(mode string) bool {
	switch mode {
	case "screen", "analyze", "scan", "exits", "full":
		return true
	default:
		return false
	}
}

// needsKalshi reports whether mode reads live market data.
func needsKalshi(mode string) bool {
	switch mode {
	case "screen", "analyze", "detect", "scan", "exits", "full":
		return true
	default:
		return false
	}
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: screen, analyze, detect, scan, exits, report, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Kalshi
	if needsKalshi(mode) {
		if c.Kalshi.ApiKeyID == "" {
			errs = append(errs, "kalshi: api_key_id is required for mode "+mode)
		}
		if c.Kalshi.RsaPrivateKeyPath == "" {
			errs = append(errs, "kalshi: rsa_private_key_path is required for mode "+mode)
		}
		if c.Kalshi.BaseURL == "" {
			errs = append(errs, "kalshi: base_url must not be empty")
		}
	}

	// Estimators
	if needsEstimators(mode) && len(c.Estimators) == 0 {
		errs = append(errs, "estimators: at least one provider is required for mode "+mode)
	}
	for i, est := range c.Estimators {
		if est.Provider == "" {
			errs = append(errs, fmt.Sprintf("estimators[%d]: provider must not be empty", i))
		}
		if est.ApiKey == "" {
			errs = append(errs, fmt.Sprintf("estimators[%d]: api_key must not be empty", i))
		}
	}

	// Consensus
	if c.Consensus.PromoteThreshold < 0 || c.Consensus.PromoteThreshold > 1 {
		errs = append(errs, fmt.Sprintf("consensus: promote_threshold must be in [0,1], got %g", c.Consensus.PromoteThreshold))
	}
	if c.Consensus.Concurrency < 1 {
		errs = append(errs, "consensus: concurrency must be >= 1")
	}

	// Trading
	if c.Trading.EntryThreshold <= 0 {
		errs = append(errs, "trading: entry_threshold must be > 0")
	}
	if c.Trading.ExitThreshold <= 0 {
		errs = append(errs, "trading: exit_threshold must be > 0")
	}
	if c.Trading.ExitThreshold >= c.Trading.EntryThreshold {
		errs = append(errs, "trading: exit_threshold must be below entry_threshold")
	}
	if c.Trading.MaxPosition < c.Trading.BasePosition {
		errs = append(errs, "trading: max_position must be >= base_position")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 is only required for archive modes.
	if mode == "archive" || mode == "full" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.ArchiveRetentionDays < 1 {
			errs = append(errs, "s3: archive_retention_days must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
