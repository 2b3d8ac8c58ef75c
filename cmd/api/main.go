package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loja-core/internal/config"
	"loja-core/internal/coupon"
	"loja-core/internal/database"
	"loja-core/internal/dispatch"
	"loja-core/internal/events"
	"loja-core/internal/handler"
	"loja-core/internal/payment"
	"loja-core/internal/reconcile"
	"loja-core/internal/repository"
	"loja-core/internal/retry"
	"loja-core/internal/router"
	"loja-core/internal/service"

	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Str("env", cfg.App.Env).Msg("starting loja-core API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize redis, optional. Reconciliation stays correct without it.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, continuing without cache")
			rdb = nil
		}
		if rdb != nil {
			defer rdb.Close()
		}
	}

	// Initialize repositories
	variantRepo := repository.NewVariantRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	eventRepo := repository.NewPaymentEventRepository(pool, logger)

	// Initialize coupon validator
	validator := coupon.NewValidator(couponRepo, logger)

	// Initialize payment provider client and preference builder
	provider := payment.NewClient(cfg.Provider.BaseURL, cfg.Provider.AccessToken, logger)
	builder := payment.NewBuilder(payment.BuilderConfig{
		PublicBaseURL: cfg.Provider.PublicBaseURL,
		Dev:           cfg.IsDev(),
	}, logger)

	// Initialize downstream dispatcher, optional
	var dispatcher dispatch.Dispatcher
	if cfg.Dispatch.URL != "" {
		dispatcher = dispatch.NewDispatcher(dispatch.Config{
			URL:    cfg.Dispatch.URL,
			Token:  cfg.Dispatch.Token,
			Secret: cfg.Dispatch.Secret,
		}, retry.DefaultPolicy(), logger)
	} else {
		logger.Info().Msg("dispatch URL not configured, outbound dispatch disabled")
	}

	// Initialize event publisher, optional
	publisher := events.NewPublisher(cfg.Kafka.Brokers, logger)
	publisher.Start(ctx)
	defer func() {
		// The delivery loop drains only after its context is cancelled, so
		// cancel before waiting. The server has already stopped here.
		cancel()
		publisher.Wait()
	}()

	// Initialize reconciler
	reconciler := reconcile.New(provider, orderRepo, eventRepo, dispatcher, publisher, rdb, logger)

	// Initialize services
	orderService := service.NewOrderService(orderRepo, variantRepo, validator, publisher, service.DefaultOrderConfig(), logger)
	checkoutService := service.NewCheckoutService(orderRepo, builder, provider, logger)

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService, logger)
	stockHandler := handler.NewStockHandler(variantRepo, logger)
	webhookHandler := handler.NewWebhookHandler(reconciler, cfg.Webhook.Secret, logger)

	// Initialize router
	mux := router.New(orderHandler, checkoutHandler, stockHandler, webhookHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
