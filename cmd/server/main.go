package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "magirls/docs"
	"magirls/internal/config"
	"magirls/internal/infra"
	"magirls/internal/realtime"
	"magirls/internal/repository"
	"magirls/internal/router"
	"magirls/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title                      Ma' Girls POS API
// @version                    1.0
// @description                Stock ledger and checkout for the Ma' Girls store.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// dev: pretty console, prod: JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	rdb := connectRedis(cfg.RedisURL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Async side effects: receipts, customer emails, low stock alerts.
	mailCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	if rdb != nil {
		defer rdb.Close()
		mailer := infra.NewMailer(cfg)
		if !mailer.Enabled() {
			log.Warn().Msg("SMTP_HOST not set, receipt and alert emails are disabled")
		}
		dispatcher := worker.NewDispatcher(rdb)
		saleRepo := repository.NewSaleRepository(db)

		workerHandlers := &worker.WorkerHandlers{
			Receipt: worker.NewReceiptWorker(saleRepo, dispatcher, cfg.StoreName, cfg.ReceiptStoragePath),
			Email:   worker.NewEmailWorker(mailer, mailCB, cfg.AlertEmail, cfg.StoreName),
		}
		worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
		worker.StartRetryCron(ctx, worker.RetryCronConfig{RDB: rdb, CB: mailCB, Dispatcher: dispatcher})
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	r := router.New(cfg, db, rdb, mailCB, hub)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("magirls backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown on SIGINT / SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// connectRedis returns nil when Redis is unreachable. The server then runs
// without the price cache, background jobs and dead letter replay.
func connectRedis(url string) *redis.Client {
	rdb, err := infra.NewRedis(url)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, starting without cache and background jobs")
		return nil
	}
	return rdb
}
