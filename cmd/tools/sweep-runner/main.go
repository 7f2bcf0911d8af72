// Package main implements sweep-runner, which runs the missed-reading sweep
// directly instead of through the Lambda runtime.
//
// It is meant for local development, backfills and operational debugging.
//
// Usage:
//
//	go run ./cmd/tools/sweep-runner
//	go run ./cmd/tools/sweep-runner --reference-time=2026-07-01T18:00:00Z
//	go run ./cmd/tools/sweep-runner --dry-run --reference-time=2026-07-01T18:00:00Z
//
// Configuration comes from the environment (or a .env file) exactly as for
// the API. In --dry-run mode it prints the Lambda event it would send.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hydrosnap/internal/app"
	"hydrosnap/internal/scheduler"
	"hydrosnap/internal/types"
)

func main() {
	refTimeFlag := flag.String("reference-time", "", "Override reference time (RFC3339, e.g. 2026-07-01T18:00:00Z)")
	dryRunFlag := flag.Bool("dry-run", false, "Print the sweep event without executing")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: sweep-runner [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Run the missed-reading sweep directly, bypassing Lambda.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	payload, err := buildPayload(*refTimeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *dryRunFlag {
		if err := printPayload(os.Stdout, payload); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := execute(ctx, payload); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// buildPayload parses the optional reference time into a sweep event.
func buildPayload(refTime string) (scheduler.SweepPayload, error) {
	if refTime == "" {
		return scheduler.SweepPayload{}, nil
	}
	t, err := time.Parse(time.RFC3339, refTime)
	if err != nil {
		return scheduler.SweepPayload{}, fmt.Errorf("invalid --reference-time %q: expected RFC3339: %w", refTime, err)
	}
	t = t.UTC()
	return scheduler.SweepPayload{ReferenceTime: &t}, nil
}

func printPayload(w io.Writer, p scheduler.SweepPayload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func execute(ctx context.Context, payload scheduler.SweepPayload) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := app.NewLogger(cfg)

	deps, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	var recorder scheduler.SweepRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	sweep := scheduler.NewMissedReadingSweep(deps.Sites, deps.Engine, recorder,
		types.NewSlogAdapter(logger), cfg.Monitoring.StalenessWindow, cfg.Monitoring.SweepConcurrency)

	now := time.Now().UTC()
	if payload.ReferenceTime != nil {
		now = *payload.ReferenceTime
	}

	res, err := sweep.Run(ctx, now)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	logger.Info("sweep complete",
		"reference_time", now.Format(time.RFC3339),
		"sites_checked", res.SitesChecked,
		"sites_due", res.SitesDue,
		"alerts_created", res.AlertsCreated,
		"failures", res.Failures,
	)
	return nil
}
