package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/events"
	"nurture_backend/internal/funnels"
	funnelrepo "nurture_backend/internal/funnels/repository"
	"nurture_backend/internal/retention"
	"nurture_backend/internal/scheduler"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting engine", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	emailSender := dispatch.NewSMTPSender(cfg)
	if emailSender == nil {
		log.Error("email sending disabled; the engine requires SMTP configuration")
		panic("email sending disabled; the engine requires SMTP configuration")
	}

	var smsSender dispatch.SMSSender
	if sms := dispatch.NewSMSClient(cfg, log); sms != nil {
		smsSender = sms
	} else {
		log.Warn("SMS provider not configured; sms steps will fail dispatch")
	}

	var voiceSender dispatch.VoiceSender
	if voice := dispatch.NewVoiceClient(cfg, log); voice != nil {
		voiceSender = voice
	} else {
		log.Warn("voice provider not configured; call steps will fail dispatch")
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.GetDispatchRatePerSecond()), cfg.GetDispatchBurst())
	dispatcher := dispatch.New(emailSender, smsSender, voiceSender, funnelrepo.New(pool), limiter, log)

	schedulerClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = schedulerClient.Close() }()

	funnelsModule := funnels.NewModule(pool, dispatcher, schedulerClient, eventBus, val, log)

	retentionScheduler := retention.NewScheduler(retention.NewRepository(pool), emailSender, cfg, eventBus, log)
	go retentionScheduler.Run(ctx)

	sweepInterval := getDurationEnv("FUNNEL_SWEEP_INTERVAL", time.Minute)
	sweeper := scheduler.NewSweeper(schedulerClient, sweepInterval, log)
	go sweeper.Run(ctx)

	healthInterval := getDurationEnv("ENGINE_HEALTH_CHECK_INTERVAL", 5*time.Minute)
	healthCheck := scheduler.NewHealthCheck(pool, healthInterval, log)
	go healthCheck.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, funnelsModule.Sequencer(), log)
	if err != nil {
		log.Error("failed to initialize engine worker", "error", err)
		panic("failed to initialize engine worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
