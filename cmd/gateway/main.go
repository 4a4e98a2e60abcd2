package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application/services"
	"github.com/pccbooth/payment-gateway/internal/config"
	"github.com/pccbooth/payment-gateway/internal/infrastructure/boothapi"
	"github.com/pccbooth/payment-gateway/internal/infrastructure/persistence"
	"github.com/pccbooth/payment-gateway/internal/infrastructure/persistence/postgres"
	"github.com/pccbooth/payment-gateway/internal/infrastructure/stripe"
	"github.com/pccbooth/payment-gateway/internal/interfaces/rest/handlers"
	"github.com/pccbooth/payment-gateway/internal/interfaces/rest/middleware"
	"github.com/pccbooth/payment-gateway/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payment gateway",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	if err := persistence.RunMigrations(&cfg.Database, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	sessionRepo := postgres.NewSessionRepository(db)
	eventRepo := postgres.NewWebhookEventRepository(db)

	stripeClient := stripe.NewClient(cfg.Stripe)
	boothClient := boothapi.NewClient(cfg.BoothAPI)

	checkoutService := services.NewCheckoutService(
		sessionRepo, stripeClient, boothClient, boothClient, cfg.Checkout, logger)
	reconcileService := services.NewReconcileService(
		sessionRepo, stripeClient, boothClient, eventRepo, logger)
	expireService := services.NewExpireService(sessionRepo, stripeClient, logger)
	queryService := services.NewQueryService(sessionRepo, cfg.Checkout.Currency)

	h := handlers.NewHandlers(
		checkoutService,
		reconcileService,
		expireService,
		queryService,
		stripeClient,
		logger,
	)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	handler := middleware.Recovery(logger)(mux)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	expirationWorker := worker.NewExpirationWorker(
		sessionRepo,
		stripeClient,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go expirationWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
