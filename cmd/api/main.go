package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/events"
	"nurture_backend/internal/funnels"
	funnelrepo "nurture_backend/internal/funnels/repository"
	"nurture_backend/internal/funnels/sequencer"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/http/router"
	"nurture_backend/internal/scheduler"
	scoringhandler "nurture_backend/internal/scoring/handler"
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

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	schedulerClient, closeScheduler := initStepScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	var stepScheduler sequencer.StepScheduler
	if schedulerClient != nil {
		stepScheduler = schedulerClient
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	dispatcher := buildDispatcher(cfg, pool, log)

	funnelsModule := funnels.NewModule(pool, dispatcher, stepScheduler, eventBus, val, log)
	scoringModule := scoringhandler.NewModule(pool, eventBus, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			funnelsModule,
			scoringModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// buildDispatcher assembles the channel adapters. Disabled channels stay nil
// so the dispatcher can reject their steps with a clear error.
func buildDispatcher(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) *dispatch.Dispatcher {
	var emailSender dispatch.EmailSender
	if smtp := dispatch.NewSMTPSender(cfg); smtp != nil {
		emailSender = smtp
	} else {
		log.Warn("email sending disabled; email steps will fail dispatch")
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

	taskWriter := funnelrepo.New(pool)
	limiter := rate.NewLimiter(rate.Limit(cfg.GetDispatchRatePerSecond()), cfg.GetDispatchBurst())

	return dispatch.New(emailSender, smsSender, voiceSender, taskWriter, limiter, log)
}

func initStepScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; per-step wakeups disabled, sweep only")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize step scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
