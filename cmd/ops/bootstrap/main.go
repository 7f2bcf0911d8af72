// Package main implements the HydroSnap bootstrap tool.
//
// It populates the SSM parameters the services resolve at startup (the
// database URL, the QR credential secret, the Redis password and the
// webhook settings) and prints the <VAR>_SSM_PARAM pointers to configure
// on each function. Existing parameters are detected and only replaced on
// explicit confirmation.
//
// Usage:
//
//	go run ./cmd/ops/bootstrap --env=dev [--profile=NAME] [--region=REGION]
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var validEnvironments = map[string]bool{
	"dev":     true,
	"staging": true,
	"prod":    true,
}

// BootstrapContext is the session established before any parameter is
// touched.
type BootstrapContext struct {
	Environment string
	AWSRegion   string
	AccountID   string
	CallerARN   string
	AWSConfig   aws.Config
	Logger      *slog.Logger
}

func main() {
	envFlag := flag.String("env", "", "Target environment (dev/staging/prod) [required]")
	profileFlag := flag.String("profile", "", "AWS CLI profile (default: default credential chain)")
	regionFlag := flag.String("region", "us-east-1", "AWS region")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "HydroSnap Bootstrap Tool\n\n")
		fmt.Fprintf(os.Stderr, "Populates the SSM parameters HydroSnap resolves at startup.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  bootstrap --env=dev [--profile=NAME] [--region=REGION]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !validEnvironments[*envFlag] {
		fmt.Fprintf(os.Stderr, "error: --env must be dev, staging, or prod\n\n")
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bctx, err := initializeSession(ctx, *envFlag, *profileFlag, *regionFlag, logger)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	if bctx.Environment == "prod" && !confirmProduction(bctx) {
		fmt.Fprintln(os.Stderr, "Aborted. No changes were made.")
		return
	}

	runner := NewBootstrapRunner(bctx)
	if err := runner.Run(ctx); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bootstrap completed", "env", bctx.Environment, "account", bctx.AccountID, "region", bctx.AWSRegion)
}

// initializeSession loads AWS config and confirms the active identity with
// STS before anything is written.
func initializeSession(ctx context.Context, env, profile, region string, logger *slog.Logger) (*BootstrapContext, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	idCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(idCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("verifying AWS identity (profile %q, region %q): %w", profile, region, err)
	}

	bctx := &BootstrapContext{
		Environment: env,
		AWSRegion:   region,
		AccountID:   aws.ToString(identity.Account),
		CallerARN:   aws.ToString(identity.Arn),
		AWSConfig:   cfg,
		Logger:      logger,
	}
	logger.Info("AWS identity verified", "account", bctx.AccountID, "arn", bctx.CallerARN)
	return bctx, nil
}

// confirmProduction requires the operator to type the account id.
func confirmProduction(bctx *BootstrapContext) bool {
	fmt.Fprintf(os.Stderr, "\nYou are about to modify PRODUCTION parameters in account %s.\n", bctx.AccountID)
	fmt.Fprintf(os.Stderr, "Type the account ID to continue: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == bctx.AccountID
}
