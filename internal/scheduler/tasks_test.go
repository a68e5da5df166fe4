package scheduler

import (
	"testing"

	"github.com/hibiken/asynq"
)

func TestFunnelStepDuePayloadRoundTrip(t *testing.T) {
	payload := FunnelStepDuePayload{
		LeadID:     "4a9c2f5e-1b7d-4c3a-9e8f-0123456789ab",
		FunnelType: "welcome",
	}

	task, err := NewFunnelStepDueTask(payload)
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	if task.Type() != TaskFunnelStepDue {
		t.Fatalf("unexpected task type %s", task.Type())
	}

	parsed, err := ParseFunnelStepDuePayload(task)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != payload {
		t.Fatalf("expected %+v, got %+v", payload, parsed)
	}
}

func TestParseFunnelStepDuePayloadRejectsGarbage(t *testing.T) {
	task := asynq.NewTask(TaskFunnelStepDue, []byte("not json"))
	if _, err := ParseFunnelStepDuePayload(task); err == nil {
		t.Fatal("expected parse error for malformed payload")
	}
}

func TestFunnelSweepTaskHasNoPayload(t *testing.T) {
	task := NewFunnelSweepTask()
	if task.Type() != TaskFunnelSweep {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	if len(task.Payload()) != 0 {
		t.Fatalf("expected empty payload, got %q", task.Payload())
	}
}
