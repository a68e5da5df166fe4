package scheduler

import (
	"context"
	"testing"
	"time"

	"nurture_backend/internal/funnels/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func newMiniredisClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()
	mr := miniredis.RunT(t)

	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	client := &Client{client: asynq.NewClient(opt), queue: "default"}
	t.Cleanup(func() { _ = client.Close() })

	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() { _ = inspector.Close() })
	return client, inspector
}

func TestScheduleStepDueEnqueuesScheduledTask(t *testing.T) {
	client, inspector := newMiniredisClient(t)

	leadID := uuid.New()
	runAt := time.Now().Add(time.Hour)
	if err := client.ScheduleStepDue(context.Background(), leadID, domain.FunnelWelcome, runAt); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	tasks, err := inspector.ListScheduledTasks("default")
	if err != nil {
		t.Fatalf("list scheduled failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected one scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskFunnelStepDue {
		t.Fatalf("unexpected task type %s", tasks[0].Type)
	}

	payload, err := ParseFunnelStepDuePayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if payload.LeadID != leadID.String() || payload.FunnelType != string(domain.FunnelWelcome) {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestScheduleSweepEnqueuesImmediateTask(t *testing.T) {
	client, inspector := newMiniredisClient(t)

	if err := client.ScheduleSweep(context.Background(), time.Now()); err != nil {
		t.Fatalf("schedule sweep failed: %v", err)
	}

	// A task with a past ProcessAt lands in the pending queue.
	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != TaskFunnelSweep {
		t.Fatalf("expected one pending sweep task, got %+v", pending)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	if err := client.ScheduleStepDue(context.Background(), uuid.New(), domain.FunnelWelcome, time.Now()); err != nil {
		t.Fatalf("nil client schedule failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil client close failed: %v", err)
	}
}

func TestRedisClientOptParsesURL(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected opt %+v", opt)
	}
	if opt.TLSConfig != nil {
		t.Fatal("expected no TLS config for redis scheme")
	}
}

func TestRedisClientOptInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}

func TestRedisClientOptRejectsMalformedURL(t *testing.T) {
	if _, err := redisClientOpt("://nope", false); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
