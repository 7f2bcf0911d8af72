package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// minCredentialSecretLen matches CREDENTIAL_SECRET's config validation.
const minCredentialSecretLen = 16

// validateTimeout bounds active probes such as the database connect.
const validateTimeout = 15 * time.Second

// ValidationResult is the outcome of checking one operator input.
type ValidationResult struct {
	Valid   bool
	Message string
}

// DatabaseConnector opens and immediately closes a connection.
type DatabaseConnector interface {
	Connect(ctx context.Context, dsn string) error
}

// PgxConnector connects with pgx.
type PgxConnector struct{}

// Connect verifies dsn is reachable with valid credentials.
func (PgxConnector) Connect(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	return conn.Close(ctx)
}

// Validator checks operator input before it is written to SSM.
type Validator struct {
	dbConn DatabaseConnector
}

// NewValidator creates a Validator that really connects to Postgres.
func NewValidator() *Validator {
	return &Validator{dbConn: PgxConnector{}}
}

// NewValidatorWithDeps creates a Validator with an injected connector.
func NewValidatorWithDeps(dbConn DatabaseConnector) *Validator {
	return &Validator{dbConn: dbConn}
}

// ValidateDatabaseURL requires a postgres:// URL and a successful connect.
func (v *Validator) ValidateDatabaseURL(ctx context.Context, rawURL string) ValidationResult {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ValidationResult{Message: fmt.Sprintf("invalid URL format: %v", err)}
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return ValidationResult{Message: fmt.Sprintf("expected postgres:// or postgresql:// scheme, got %q", parsed.Scheme)}
	}
	if parsed.Hostname() == "" {
		return ValidationResult{Message: "database URL has no host"}
	}

	connCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	if err := v.dbConn.Connect(connCtx, rawURL); err != nil {
		return ValidationResult{Message: fmt.Sprintf("connection failed: %v", err)}
	}
	return ValidationResult{Valid: true, Message: fmt.Sprintf("database connection verified (host=%s)", parsed.Hostname())}
}

// ValidateCredentialSecret enforces the minimum secret length. Printed QR
// codes only decode with the secret they were issued under, so reuse the
// existing secret when migrating.
func (v *Validator) ValidateCredentialSecret(_ context.Context, secret string) ValidationResult {
	if n := len(strings.TrimSpace(secret)); n < minCredentialSecretLen {
		return ValidationResult{Message: fmt.Sprintf("secret must be at least %d characters, got %d", minCredentialSecretLen, n)}
	}
	return ValidationResult{Valid: true, Message: "credential secret accepted"}
}

// ValidateWebhookURL requires an absolute https URL.
func (v *Validator) ValidateWebhookURL(_ context.Context, raw string) ValidationResult {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ValidationResult{Message: fmt.Sprintf("invalid URL format: %v", err)}
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return ValidationResult{Message: "webhook URL must be an absolute https:// URL"}
	}
	return ValidationResult{Valid: true, Message: fmt.Sprintf("webhook host %s", parsed.Hostname())}
}
