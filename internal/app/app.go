// Package app assembles the runtime dependency graph shared by the HydroSnap
// binaries: config, logger, Postgres, AWS clients, notification channels and
// the alert engine.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"hydrosnap/internal/alerts"
	"hydrosnap/internal/config"
	"hydrosnap/internal/db"
	"hydrosnap/internal/external"
	"hydrosnap/internal/notify"
	"hydrosnap/internal/security"
	"hydrosnap/internal/types"
)

// App holds the shared dependencies. Close releases them.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Sites    *db.SiteRepository
	Readings *db.ReadingRepository
	Alerts   *db.AlertRepository

	// Metrics is nil when ENABLE_METRICS is off.
	Metrics *notify.CloudWatchMetrics
	Engine  *alerts.Engine
}

// LoadConfig resolves secrets from SSM outside local mode and loads the
// configuration.
func LoadConfig() (*config.Config, error) {
	var provider config.SecretProvider
	if os.Getenv("APP_ENV") != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"))
	}
	return config.LoadConfig(provider)
}

// NewLogger returns the JSON logger every binary writes with.
func NewLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With("service", cfg.Service, "env", cfg.Environment)
}

// New connects to Postgres and AWS and builds the alert engine with the
// configured notification channels.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	dayLoc, err := cfg.Monitoring.DayLocation()
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL.Unmask(), db.PoolOptions{
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
		ConnectTimeout:    cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return nil, err
	}

	awsCfg, err := loadAWS(ctx, cfg.AWS)
	if err != nil {
		pool.Close()
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Sites:    db.NewSiteRepository(pool),
		Readings: db.NewReadingRepository(pool),
		Alerts:   db.NewAlertRepository(pool),
	}

	typed := types.NewSlogAdapter(logger)
	if cfg.Observability.EnableMetrics {
		a.Metrics = notify.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, typed)
	}

	notifier := BuildNotifier(cfg, sqs.NewFromConfig(awsCfg), typed)
	engineCfg := alerts.EngineConfig{
		Alerts:          a.Alerts,
		Logger:          typed,
		StalenessWindow: cfg.Monitoring.StalenessWindow,
		DayLocation:     dayLoc,
	}
	if a.Metrics != nil {
		engineCfg.Metrics = a.Metrics
		if notifier != nil {
			notifier = notify.NewMeteredNotifier(notifier, a.Metrics)
		}
	}
	if notifier != nil {
		engineCfg.Notifier = notifier
	}
	a.Engine = alerts.NewEngine(engineCfg)

	return a, nil
}

// BuildNotifier returns the configured channels as one Notifier, or nil
// when no channel is configured.
func BuildNotifier(cfg *config.Config, sqsClient notify.SQSSender, logger types.Logger) alerts.Notifier {
	var channels notify.Composite
	if cfg.AWS.AlertQueueStandard != "" {
		channels = append(channels, notify.NewQueueNotifier(sqsClient,
			cfg.AWS.AlertQueueUrgent, cfg.AWS.AlertQueueStandard, logger))
	}
	if cfg.Webhook.URL != "" {
		policy := external.DefaultRetryPolicy()
		policy.MaxRetries = cfg.Webhook.MaxRetries
		client := external.NewBaseClient(webhookHTTPClient(cfg.Webhook),
			"alert-webhook", policy, cfg.Webhook.UserAgent)
		channels = append(channels, notify.NewWebhookNotifier(client,
			cfg.Webhook.URL, cfg.Webhook.Secret, nil, logger).WithPlatform(cfg.Webhook.Platform))
	}

	switch len(channels) {
	case 0:
		logger.Warn("no notification channel configured; alerts are stored only")
		return nil
	case 1:
		return channels[0]
	default:
		return channels
	}
}

// webhookHTTPClient guards outbound connections unless private targets are
// explicitly allowed.
func webhookHTTPClient(c config.WebhookConfig) *http.Client {
	if c.AllowPrivate {
		return &http.Client{Timeout: c.Timeout}
	}
	return security.NewHTTPClient(nil, c.Timeout, c.MaxRedirects)
}

// Close releases the database pool.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
	}
	return nil
}

func loadAWS(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if c.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(c.EndpointURL)
	}
	return awsCfg, nil
}
