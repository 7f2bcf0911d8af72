// Package main is the entry point for the missed-reading sweeper Lambda.
//
// An EventBridge schedule invokes it periodically. Each invocation lists the
// active sites, finds those whose newest reading is older than the
// staleness window, and raises one missed_reading alert per assignee per
// day through the same engine the API uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"hydrosnap/internal/app"
	"hydrosnap/internal/scheduler"
	"hydrosnap/internal/types"
)

// Sweeper is the slice of *scheduler.MissedReadingSweep the handler runs.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (scheduler.SweepResult, error)
}

// Handler adapts a Sweeper to the Lambda runtime.
type Handler struct {
	Sweep  Sweeper
	Clock  types.Clock
	Logger *slog.Logger
}

// Handle runs one sweep. ReferenceTime in the payload replaces the clock.
func (h *Handler) Handle(ctx context.Context, payload scheduler.SweepPayload) (scheduler.SweepResult, error) {
	now := h.Clock.Now()
	if payload.ReferenceTime != nil {
		now = payload.ReferenceTime.UTC()
	}

	res, err := h.Sweep.Run(ctx, now)
	if err != nil {
		h.Logger.ErrorContext(ctx, "sweep failed", "reference_time", now, "error", err)
		return res, fmt.Errorf("missed-reading sweep: %w", err)
	}
	if res.Failures > 0 {
		h.Logger.WarnContext(ctx, "sweep finished with failures",
			"failures", res.Failures,
			"alerts_created", res.AlertsCreated,
		)
	}
	return res, nil
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	logger.Info("sweeper Lambda initializing (cold start)")

	deps, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}

	var recorder scheduler.SweepRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}
	sweep := scheduler.NewMissedReadingSweep(
		deps.Sites,
		deps.Engine,
		recorder,
		types.NewSlogAdapter(logger),
		cfg.Monitoring.StalenessWindow,
		cfg.Monitoring.SweepConcurrency,
	)

	handler := &Handler{Sweep: sweep, Clock: types.RealClock{}, Logger: logger}
	logger.Info("sweeper Lambda initialized",
		"staleness_window", cfg.Monitoring.StalenessWindow.String(),
		"concurrency", cfg.Monitoring.SweepConcurrency,
	)
	lambda.Start(handler.Handle)
}
