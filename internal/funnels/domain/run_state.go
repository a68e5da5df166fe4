package domain

import (
	"fmt"
	"time"

	"nurture_backend/platform/apperr"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of one lead's passage through a funnel.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
)

// Terminal reports whether the status is absorbing.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunCancelled
}

// FunnelRunState tracks a single lead's progress through a funnel. The
// sequencer is the only writer; dispatch code reads step content and reports
// outcomes back, never mutating the run directly.
type FunnelRunState struct {
	LeadID           uuid.UUID
	OwnerID          uuid.UUID
	FunnelType       FunnelType
	CurrentStepIndex int
	EnteredAt        time.Time
	LastAdvancedAt   time.Time
	Status           RunStatus
}

// NewRun enrolls a lead at step 0. LastAdvancedAt starts at the entry time so
// the first step's delay is relative to funnel entry.
func NewRun(leadID, ownerID uuid.UUID, funnelType FunnelType, now time.Time) FunnelRunState {
	return FunnelRunState{
		LeadID:           leadID,
		OwnerID:          ownerID,
		FunnelType:       funnelType,
		CurrentStepIndex: 0,
		EnteredAt:        now,
		LastAdvancedAt:   now,
		Status:           RunActive,
	}
}

// DueAt returns when the current step becomes due.
func (r FunnelRunState) DueAt(step Step) time.Time {
	return r.LastAdvancedAt.Add(time.Duration(step.DelayMinutes()) * time.Minute)
}

// IsDue reports whether the current step should dispatch now. Paused and
// terminal runs are never due.
func (r FunnelRunState) IsDue(step Step, now time.Time) bool {
	if r.Status != RunActive {
		return false
	}
	return !now.Before(r.DueAt(step))
}

// Advance moves the run forward after a successful dispatch. Index movement
// is always forward; reaching stepCount completes the run.
func (r *FunnelRunState) Advance(stepCount int, now time.Time) error {
	return r.advanceBy(1, stepCount, now)
}

// Skip moves the run forward by two, used when a condition step evaluates
// false: the immediately following step is skipped and never revisited.
func (r *FunnelRunState) Skip(stepCount int, now time.Time) error {
	return r.advanceBy(2, stepCount, now)
}

func (r *FunnelRunState) advanceBy(delta, stepCount int, now time.Time) error {
	if r.Status != RunActive {
		return apperr.Conflict(fmt.Sprintf("cannot advance a %s run", r.Status))
	}
	r.CurrentStepIndex += delta
	r.LastAdvancedAt = now
	if r.CurrentStepIndex >= stepCount {
		r.Status = RunCompleted
	}
	return nil
}

// Pause suspends the run without losing position.
func (r *FunnelRunState) Pause() error {
	if r.Status.Terminal() {
		return apperr.Conflict(fmt.Sprintf("cannot pause a %s run", r.Status))
	}
	r.Status = RunPaused
	return nil
}

// Resume reactivates a paused run at its current step.
func (r *FunnelRunState) Resume() error {
	if r.Status != RunPaused {
		return apperr.Conflict(fmt.Sprintf("cannot resume a %s run", r.Status))
	}
	r.Status = RunActive
	return nil
}

// Cancel terminates the run. Cancellation takes effect before the next
// due-step evaluation; an in-flight dispatch is never interrupted.
func (r *FunnelRunState) Cancel() error {
	if r.Status.Terminal() {
		return apperr.Conflict(fmt.Sprintf("cannot cancel a %s run", r.Status))
	}
	r.Status = RunCancelled
	return nil
}
