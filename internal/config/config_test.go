package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a config that passes validation in scan mode.
func validConfig() Config {
	cfg := Defaults()
	cfg.Kalshi.ApiKeyID = "key-id"
	cfg.Kalshi.RsaPrivateKeyPath = "/tmp/kalshi.pem"
	cfg.Estimators = []EstimatorConfig{
		{Provider: "openai", ApiKey: "sk-test"},
	}
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "speculate"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Trading.ExitThreshold = 0.2 // above entry threshold

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "speculate"`)
	assert.Contains(t, err.Error(), `unknown log_level "loud"`)
	assert.Contains(t, err.Error(), "redis: addr must not be empty")
	assert.Contains(t, err.Error(), "exit_threshold must be below entry_threshold")
}

func TestValidateReportModeNeedsNoCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "report"
	require.NoError(t, cfg.Validate())
}

func TestValidateEstimatorEntries(t *testing.T) {
	cfg := validConfig()
	cfg.Estimators = append(cfg.Estimators, EstimatorConfig{Provider: "anthropic"})

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimators[1]: api_key must not be empty")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "analyze"
log_level = "debug"

[kalshi]
api_key_id = "abc"

[consensus]
provider_timeout = "45s"
promote_threshold = 0.6

[[estimators]]
provider = "openai"
api_key = "sk-file"

[[estimators]]
provider = "anthropic"
api_key = "sk-ant"
model = "claude-sonnet-4-20250514"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "analyze", cfg.Mode)
	assert.Equal(t, "abc", cfg.Kalshi.ApiKeyID)
	// Untouched defaults survive the merge.
	assert.Equal(t, "https://api.elections.kalshi.com/trade-api/v2", cfg.Kalshi.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.Consensus.ProviderTimeout.Duration)
	assert.Equal(t, 0.6, cfg.Consensus.PromoteThreshold)
	require.Len(t, cfg.Estimators, 2)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Estimators[1].Model)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENBET_MODE", "detect")
	t.Setenv("OPENBET_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("OPENBET_CONSENSUS_PROVIDER_TIMEOUT", "2m")
	t.Setenv("OPENBET_ESTIMATOR_OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENBET_TRADING_MIN_OPEN_INTEREST", "250")

	cfg := Defaults()
	cfg.Estimators = []EstimatorConfig{{Provider: "openai", ApiKey: "sk-file"}}
	applyEnvOverrides(&cfg)

	assert.Equal(t, "detect", cfg.Mode)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, 2*time.Minute, cfg.Consensus.ProviderTimeout.Duration)
	assert.Equal(t, "sk-env", cfg.Estimators[0].ApiKey)
	assert.Equal(t, int64(250), cfg.Trading.MinOpenInterest)
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	t.Setenv("OPENBET_POSTGRES_PORT", "not-a-port")

	cfg := Defaults()
	applyEnvOverrides(&cfg)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Equal(t, "***", red.Estimators[0].ApiKey)
	// Original is untouched.
	assert.Equal(t, "sk-test", cfg.Estimators[0].ApiKey)
	// Non-secrets pass through.
	assert.Equal(t, cfg.Redis.Addr, red.Redis.Addr)
}
