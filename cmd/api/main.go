package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	paymentApp "github.com/cassiomorais/paygate/internal/application/payment"
	"github.com/cassiomorais/paygate/internal/bootstrap"
	appHTTP "github.com/cassiomorais/paygate/internal/interfaces/http"
	"github.com/cassiomorais/paygate/internal/interfaces/http/handlers"
	"github.com/cassiomorais/paygate/internal/providers"
	"github.com/cassiomorais/paygate/internal/providers/payos"
	"github.com/cassiomorais/paygate/internal/providers/vnpay"
	"github.com/cassiomorais/paygate/internal/providers/zalopay"
	"github.com/cassiomorais/paygate/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "payments-api", "payments")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	paymentRepo := postgres.NewPaymentRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Providers ---
	providerFactory := providers.NewFactory(
		zalopay.New(zalopay.Config{
			AppID:    app.Config.Providers.ZaloPay.AppID,
			Key1:     app.Config.Providers.ZaloPay.Key1,
			Key2:     app.Config.Providers.ZaloPay.Key2,
			Endpoint: app.Config.Providers.ZaloPay.Endpoint,
		}),
		payos.New(payos.Config{
			ClientID:    app.Config.Providers.PayOS.ClientID,
			APIKey:      app.Config.Providers.PayOS.APIKey,
			ChecksumKey: app.Config.Providers.PayOS.ChecksumKey,
			Endpoint:    app.Config.Providers.PayOS.Endpoint,
		}),
		vnpay.New(),
	)

	// --- Lifecycle engine ---
	engine := paymentApp.NewEngine(paymentRepo, outboxRepo, providerFactory, txManager, app.Metrics)

	// --- Handlers ---
	rpcHandler := handlers.NewRPCHandler(engine)
	webhookHandler := handlers.NewWebhookHandler(engine, providerFactory, app.Redis, app.Metrics)
	healthHandler := handlers.NewHealthHandler(app.Pool, app.Redis)

	// --- Router ---
	router := appHTTP.NewRouter(appHTTP.RouterDeps{
		RPCHandler:         rpcHandler,
		WebhookHandler:     webhookHandler,
		HealthHandler:      healthHandler,
		IdempotencyRepo:    idempotencyRepo,
		Metrics:            app.Metrics,
		CORSConfig:         app.Config.Server.CORS,
		AuthJWTSecret:      app.Config.Auth.JWTSecret,
		RateLimitPerMinute: app.Config.Server.RateLimitPerMinute,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
