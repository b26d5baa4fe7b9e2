package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localcare/care-booking/internal/config"
	"github.com/localcare/care-booking/internal/notify"
	redisclient "github.com/localcare/care-booking/internal/redis"
	"github.com/localcare/care-booking/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("reminder-worker starting up", "env", cfg.Env, "interval", cfg.WorkerInterval.String())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	dispatcher := notify.NewRedisDispatcher(rdb)

	var sender notify.Sender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.ReminderFromEmail,
		ToEmail:   cfg.CareTeamEmail,
	}, logger); sg != nil {
		sender = sg
		logger.Info("delivering reminders by email", "to", cfg.CareTeamEmail)
	} else {
		sender = notify.NewLogSender(logger)
		logger.Info("email not configured, logging reminders instead")
	}

	// Run once at startup
	runOnce(rootCtx, dispatcher, sender, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher, sender, logger)
		}
	}
}

func runOnce(ctx context.Context, dispatcher *notify.RedisDispatcher, sender notify.Sender, logger *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	due, err := dispatcher.PopDue(runCtx, start, 0)
	if err != nil {
		logger.Error("reminder poll failed", "error", err)
		return
	}

	delivered := 0
	for _, r := range due {
		if err := sender.Send(runCtx, r); err != nil {
			logger.Error("reminder delivery failed", "error", err, "appointment_id", r.AppointmentID)
			continue
		}
		delivered++
	}

	if len(due) > 0 {
		logger.Info("reminder run complete", "due", len(due), "delivered", delivered, "took", time.Since(start).String())
	}
}
