package domain

import (
	"testing"
	"time"

	"nurture_backend/platform/apperr"

	"github.com/google/uuid"
)

func newTestRun(t *testing.T) (FunnelRunState, time.Time) {
	t.Helper()
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return NewRun(uuid.New(), uuid.New(), FunnelWelcome, entry), entry
}

func TestAdvanceMovesForwardAndStampsTime(t *testing.T) {
	run, entry := newTestRun(t)
	later := entry.Add(time.Hour)

	if err := run.Advance(5, later); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if run.CurrentStepIndex != 1 {
		t.Fatalf("expected index 1, got %d", run.CurrentStepIndex)
	}
	if !run.LastAdvancedAt.Equal(later) {
		t.Fatalf("expected LastAdvancedAt %v, got %v", later, run.LastAdvancedAt)
	}
	if run.Status != RunActive {
		t.Fatalf("expected run to stay active, got %s", run.Status)
	}
}

func TestSkipMovesForwardByTwo(t *testing.T) {
	run, entry := newTestRun(t)

	if err := run.Skip(5, entry.Add(time.Minute)); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if run.CurrentStepIndex != 2 {
		t.Fatalf("expected index 2 after skip, got %d", run.CurrentStepIndex)
	}
}

func TestAdvancePastLastStepCompletesRun(t *testing.T) {
	run, entry := newTestRun(t)

	if err := run.Advance(1, entry.Add(time.Minute)); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if run.Status != RunCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
}

func TestSkipAtSecondToLastStepCompletesRun(t *testing.T) {
	run, entry := newTestRun(t)
	run.CurrentStepIndex = 1

	if err := run.Skip(3, entry.Add(time.Minute)); err != nil {
		t.Fatalf("skip failed: %v", err)
	}
	if run.Status != RunCompleted {
		t.Fatalf("expected completed run after skipping past end, got %s", run.Status)
	}
}

func TestAdvanceOnNonActiveRunConflicts(t *testing.T) {
	run, entry := newTestRun(t)
	if err := run.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}

	err := run.Advance(5, entry.Add(time.Minute))
	if err == nil {
		t.Fatal("expected advancing a paused run to fail")
	}
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if run.CurrentStepIndex != 0 {
		t.Fatalf("expected index unchanged, got %d", run.CurrentStepIndex)
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	run, _ := newTestRun(t)

	if err := run.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if run.Status != RunPaused {
		t.Fatalf("expected paused, got %s", run.Status)
	}
	if err := run.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if run.Status != RunActive {
		t.Fatalf("expected active after resume, got %s", run.Status)
	}
}

func TestResumeRequiresPausedRun(t *testing.T) {
	run, _ := newTestRun(t)

	if err := run.Resume(); err == nil {
		t.Fatal("expected resuming an active run to fail")
	}
}

func TestTerminalRunsRejectPauseAndCancel(t *testing.T) {
	run, _ := newTestRun(t)
	if err := run.Cancel(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if err := run.Pause(); err == nil {
		t.Fatal("expected pausing a cancelled run to fail")
	}
	if err := run.Cancel(); err == nil {
		t.Fatal("expected cancelling a cancelled run to fail")
	}
}

func TestIsDueHonorsDelayAndStatus(t *testing.T) {
	run, entry := newTestRun(t)
	step := Step{ID: "s1", Type: StepEmail, ContentTemplate: "hi", Delay: "1 hour"}

	if run.IsDue(step, entry.Add(30*time.Minute)) {
		t.Fatal("expected step not due before the delay elapses")
	}
	if !run.IsDue(step, entry.Add(time.Hour)) {
		t.Fatal("expected step due exactly at the delay boundary")
	}

	if err := run.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if run.IsDue(step, entry.Add(2*time.Hour)) {
		t.Fatal("expected paused run never to be due")
	}
}

func TestDueAtIsRelativeToLastAdvance(t *testing.T) {
	run, entry := newTestRun(t)
	step := Step{ID: "s1", Type: StepWait, Delay: "+1 day"}

	want := entry.Add(24 * time.Hour)
	if got := run.DueAt(step); !got.Equal(want) {
		t.Fatalf("expected due at %v, got %v", want, got)
	}
}
