package scheduler

import (
	"context"
	"time"

	"nurture_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthCheck periodically verifies the database is reachable so an outage
// shows up in logs before operators notice stalled funnels.
type HealthCheck struct {
	pool     *pgxpool.Pool
	interval time.Duration
	log      *logger.Logger
}

func NewHealthCheck(pool *pgxpool.Pool, interval time.Duration, log *logger.Logger) *HealthCheck {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &HealthCheck{pool: pool, interval: interval, log: log}
}

func (h *HealthCheck) Run(ctx context.Context) {
	if h == nil || h.pool == nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.check(ctx)
		}
	}
}

func (h *HealthCheck) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.pool.Ping(pingCtx); err != nil {
		h.log.Error("health check failed", "service", "database", "error", err.Error())
		return
	}
	h.log.Debug("health check ok", "service", "database", "latency_ms", float64(time.Since(start).Microseconds())/1000)
}
