package scheduler

import (
	"context"
	"time"

	"nurture_backend/platform/logger"
)

// Sweeper periodically enqueues the catch-all funnel pass. Per-lead wake-up
// tasks cover the common path; the sweep picks up runs whose wake-up was
// lost or never scheduled.
type Sweeper struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(client *Client, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{client: client, interval: interval, log: log}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	s.enqueue(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.enqueue(ctx)
		}
	}
}

func (s *Sweeper) enqueue(ctx context.Context) {
	if err := s.client.ScheduleSweep(ctx, time.Now()); err != nil {
		s.log.Error("funnel sweep enqueue failed", "error", err.Error())
	}
}
