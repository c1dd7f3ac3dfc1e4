package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	outboxApp "github.com/cassiomorais/paygate/internal/application/outbox"
	"github.com/cassiomorais/paygate/internal/bootstrap"
	"github.com/cassiomorais/paygate/internal/repository/postgres"
	"golang.org/x/sync/errgroup"
)

const (
	cleanupInterval   = 24 * time.Hour
	exhaustedInterval = 1 * time.Hour
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "payments-worker", "payments_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	publisher := outboxApp.NewPublisher(
		outboxRepo,
		app.Kafka,
		app.Logger,
		app.Config.Outbox.BatchSize,
		app.Config.Outbox.MaxRetries,
		app.Metrics,
	)
	alertSink := outboxApp.LogAlertSink{Logger: app.Logger}
	retention := time.Duration(app.Config.Outbox.RetentionDays) * 24 * time.Hour

	app.Logger.Info().
		Int("batch_size", app.Config.Outbox.BatchSize).
		Int("max_retries", app.Config.Outbox.MaxRetries).
		Dur("poll_interval", app.Config.Outbox.PollInterval).
		Msg("Outbox worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Outbox publish loop: poll unpublished rows, publish to Kafka.
	g.Go(func() error {
		return publisher.Run(gCtx, app.Config.Outbox.PollInterval)
	})

	// 2. Daily retention cleanup of published rows.
	g.Go(func() error {
		return runOnInterval(gCtx, cleanupInterval, func() {
			publisher.Cleanup(gCtx, retention)
		})
	})

	// 3. Hourly scan for rows that exhausted their retry budget.
	g.Go(func() error {
		return runOnInterval(gCtx, exhaustedInterval, func() {
			publisher.ScanExhausted(gCtx, alertSink)
		})
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runOnInterval(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
