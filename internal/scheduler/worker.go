package scheduler

import (
	"context"
	"fmt"

	"nurture_backend/internal/funnels/domain"
	"nurture_backend/internal/funnels/sequencer"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	seq    *sequencer.Sequencer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, seq *sequencer.Sequencer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		seq:    seq,
		log:    log,
	}

	mux.HandleFunc(TaskFunnelStepDue, w.handleFunnelStepDue)
	mux.HandleFunc(TaskFunnelSweep, w.handleFunnelSweep)

	return w, nil
}

func (w *Worker) handleFunnelStepDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFunnelStepDuePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	return w.seq.ProcessLead(ctx, leadID, domain.FunnelType(payload.FunnelType))
}

func (w *Worker) handleFunnelSweep(ctx context.Context, _ *asynq.Task) error {
	_, err := w.seq.ProcessDue(ctx)
	return err
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
