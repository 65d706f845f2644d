package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursecheckout/internal/config"
	"coursecheckout/internal/database"
	"coursecheckout/internal/infrastructure/notify"
	"coursecheckout/internal/infrastructure/payment"
	"coursecheckout/internal/metrics"
	"coursecheckout/internal/repo"
	"coursecheckout/internal/server"
	"coursecheckout/internal/service"
	"coursecheckout/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("port", cfg.Port).
		Str("provider", cfg.Provider).
		Msg("starting coursecheckout")

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	gw := database.NewGateway(db, log.Logger)
	orderRepo := repo.NewOrderRepo(gw)
	cartRepo := repo.NewCartRepo(gw)
	enrollmentRepo := repo.NewEnrollmentRepo(gw)

	var provider payment.Provider
	switch cfg.Provider {
	case config.ProviderLive:
		provider = payment.NewLiveProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	default:
		provider = payment.NewFakeProvider()
		log.Warn().Msg("using simulated payment provider, no real charges will happen")
	}

	var notifier notify.Notifier = notify.LogNotifier{Log: log.Logger}
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to AMQP broker")
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
		log.Info().Str("queue", cfg.NotifyQueue).Msg("AMQP notifier connected")
	}

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	cartService := service.NewCartService(cartRepo)
	ledgerService := service.NewLedgerService(gw, orderRepo, enrollmentRepo, cartRepo, notifier, pipelineMetrics, log.Logger)
	checkoutService := service.NewCheckoutService(gw, cartService, orderRepo, provider, ledgerService, pipelineMetrics, cfg.ProviderTimeout, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reconciler := worker.NewReconciliationWorker(
		orderRepo, checkoutService,
		cfg.ReconcileInterval, cfg.StuckAfter, cfg.PendingExpiry,
		log.Logger,
	)
	go reconciler.Run(ctx)

	srv := server.New(server.Options{
		Checkout:       checkoutService,
		Ledger:         ledgerService,
		DB:             db,
		WebhookSecret:  cfg.WebhookSecret,
		Metrics:        pipelineMetrics,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log.Logger,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	log.Info().Msg("stopped")
}
