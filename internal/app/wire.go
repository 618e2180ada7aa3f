package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	s3blob "github.com/apurv101/openbet/internal/blob/s3"
	"github.com/apurv101/openbet/internal/cache/redis"
	"github.com/apurv101/openbet/internal/config"
	"github.com/apurv101/openbet/internal/domain"
	"github.com/apurv101/openbet/internal/estimator"
	"github.com/apurv101/openbet/internal/notify"
	"github.com/apurv101/openbet/internal/platform/kalshi"
	"github.com/apurv101/openbet/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	EventStore       domain.EventStore
	VerdictStore     domain.VerdictStore
	OpportunityStore domain.OpportunityStore
	SignalStore      domain.SignalStore
	DecisionStore    domain.DecisionStore
	PositionStore    domain.PositionStore
	AuditStore       domain.AuditStore

	// Caches
	VerdictCache domain.VerdictCache

	// Market data
	Market *kalshi.Client

	// Estimator panel
	Estimators []estimator.Estimator

	// Blob storage
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsKalshi returns true for modes that read live market data.
func needsKalshi(mode string) bool {
	switch mode {
	case "screen", "analyze", "detect", "scan", "exits", "full":
		return true
	default:
		return false
	}
}

// needsEstimators returns true for modes that call the LLM panel.
func needsEstimators(mode string) bool {
	switch mode {
	case "screen", "analyze", "scan", "exits", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.EventStore = postgres.NewEventStore(pool)
	deps.VerdictStore = postgres.NewVerdictStore(pool)
	deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	deps.SignalStore = postgres.NewSignalStore(pool)
	deps.DecisionStore = postgres.NewDecisionStore(pool)
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.VerdictCache = redis.NewVerdictCache(redisClient, cfg.Consensus.CacheTTL.Duration)

	// --- Kalshi ---
	if needsKalshi(mode) {
		client := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.ApiKeyID)
		pemBytes, err := os.ReadFile(cfg.Kalshi.RsaPrivateKeyPath)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: kalshi: read private key: %w", err)
		}
		if err := client.SetRSAPrivateKey(pemBytes); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: kalshi: %w", err)
		}
		deps.Market = client
	}

	// --- Estimator panel ---
	if needsEstimators(mode) {
		cfgs := make([]estimator.Config, 0, len(cfg.Estimators))
		for _, e := range cfg.Estimators {
			cfgs = append(cfgs, estimator.Config{
				Provider:          e.Provider,
				Name:              e.Name,
				Model:             e.Model,
				APIKey:            e.ApiKey,
				BaseURL:           e.BaseURL,
				MaxTokens:         e.MaxTokens,
				Timeout:           secondsOrZero(e.TimeoutSec),
				RequestsPerMinute: e.RequestsPerMinute,
			})
		}
		ests, err := estimator.NewAll(cfgs)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: estimators: %w", err)
		}
		deps.Estimators = ests
	}

	// --- S3 blob storage ---
	if needsS3(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			postgres.NewDecisionStore(pool),
			postgres.NewSignalStore(pool),
			deps.AuditStore,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	return deps, cleanup, nil
}

// secondsOrZero converts an optional seconds knob into a duration, leaving
// zero to mean "use the component default".
func secondsOrZero(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}
