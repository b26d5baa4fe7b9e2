package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localcare/care-booking/internal/api"
	"github.com/localcare/care-booking/internal/booking"
	"github.com/localcare/care-booking/internal/caregiver"
	"github.com/localcare/care-booking/internal/config"
	"github.com/localcare/care-booking/internal/db"
	"github.com/localcare/care-booking/internal/notify"
	"github.com/localcare/care-booking/internal/payments"
	redisclient "github.com/localcare/care-booking/internal/redis"
	"github.com/localcare/care-booking/pkg/logging"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()
	logger.Info("connected to Redis")

	var processor payments.Processor
	if cfg.PaymentsMode == "http" {
		processor = payments.NewHTTPProcessor(cfg.PaymentAPIBase, cfg.PaymentSecretKey, logger)
	} else {
		logger.Warn("using fake payment processor, no real money moves")
		processor = payments.NewFakeProcessor()
	}

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisCaregiverLocker(rdb, cfg.LockTTL)
	directory := caregiver.NewPgDirectory(pgPool)
	dispatcher := notify.NewRedisDispatcher(rdb)

	svc := booking.NewService(repo, locker, directory, processor, dispatcher, booking.ServiceConfig{
		Currency:         cfg.Currency,
		RecurrencePolicy: booking.ConflictPolicy(cfg.RecurrencePolicy),
	}, logger)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		Logger:  logger,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("api-server stopped")
}
