// Package config defines the HydroSnap process configuration. It is loaded
// once at startup and never modified afterwards.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format fails startup.
package config

import (
	"fmt"
	"time"

	"hydrosnap/internal/types"
)

// SecretString is an alias for types.SecretString so secrets never reach logs.
type SecretString = types.SecretString

// Config is the top-level configuration. Components receive only the group
// they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"hydrosnap"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Credential    CredentialConfig
	Monitoring    MonitoringConfig
	AWS           AWSConfig
	Webhook       WebhookConfig
	Observability ObservabilityConfig

	// Build is injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	// ScanRateLimit caps credential scans per client IP per minute. Zero
	// disables the limiter.
	ScanRateLimit int `envconfig:"SCAN_RATE_LIMIT" default:"30" validate:"gte=0"`
}

// DatabaseConfig holds the Postgres connection and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	ConnectTimeout    time.Duration `envconfig:"DB_CONNECT_TIMEOUT" default:"5s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// RedisConfig holds the threshold cache connection. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr         string        `envconfig:"REDIS_ADDR"`
	Password     SecretString  `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	ThresholdTTL time.Duration `envconfig:"THRESHOLD_CACHE_TTL" default:"10m"`
}

// CredentialConfig holds the site QR credential secret and decode policy.
type CredentialConfig struct {
	Secret          SecretString  `envconfig:"CREDENTIAL_SECRET" validate:"required,min=16"`
	MaxTokenAge     time.Duration `envconfig:"CREDENTIAL_MAX_TOKEN_AGE" default:"0"`
	StrictIntegrity bool          `envconfig:"CREDENTIAL_STRICT_INTEGRITY" default:"false"`
}

// MonitoringConfig tunes classification and alert dedup.
type MonitoringConfig struct {
	StalenessWindow  time.Duration `envconfig:"STALENESS_WINDOW" default:"6h" validate:"gt=0"`
	AlertDayTimezone string        `envconfig:"ALERT_DAY_TIMEZONE" default:"UTC"`
	SweepConcurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"8" validate:"gte=1"`
}

// DayLocation returns the location dedup days are computed in.
func (m MonitoringConfig) DayLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(m.AlertDayTimezone)
	if err != nil {
		return nil, fmt.Errorf("ALERT_DAY_TIMEZONE %q: %w", m.AlertDayTimezone, err)
	}
	return loc, nil
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Empty queue URLs disable the queue channel. An empty urgent queue
	// routes every alert to the standard one.
	AlertQueueUrgent   string `envconfig:"SQS_ALERTS_URGENT" validate:"omitempty,url"`
	AlertQueueStandard string `envconfig:"SQS_ALERTS_STANDARD" validate:"omitempty,url"`

	// LocalStack support. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// WebhookConfig holds the optional outbound alert webhook. An empty URL
// disables it.
type WebhookConfig struct {
	URL        string        `envconfig:"ALERT_WEBHOOK_URL" validate:"omitempty,url"`
	Secret     SecretString  `envconfig:"ALERT_WEBHOOK_SECRET"`
	UserAgent  string        `envconfig:"WEBHOOK_USER_AGENT" default:"HydroSnap-Webhook/1.0"`
	Timeout    time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	MaxRetries int           `envconfig:"WEBHOOK_MAX_RETRIES" default:"2" validate:"gte=0"`

	// Platform overrides body layout detection from the URL.
	Platform string `envconfig:"WEBHOOK_PLATFORM" validate:"omitempty,oneof=generic slack discord"`

	// AllowPrivate disables the outbound address guard. Local only.
	AllowPrivate bool `envconfig:"WEBHOOK_ALLOW_PRIVATE" default:"false"`
	MaxRedirects int  `envconfig:"WEBHOOK_MAX_REDIRECTS" default:"3" validate:"gte=0"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"HydroSnap"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
