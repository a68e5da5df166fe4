// Package sequencer advances funnel runs through their steps. It is the only
// writer of run state: each pass picks up due runs, evaluates or dispatches
// the current step, and moves the index forward on success. A dispatch
// failure leaves the run untouched so the step is retried on the next pass.
package sequencer

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/events"
	"nurture_backend/internal/funnels/domain"
	"nurture_backend/internal/funnels/repository"
	"nurture_backend/internal/funnels/template"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

const unsubscribeFooter = "\n\nTo stop receiving these messages, reply STOP or use the unsubscribe link."

// Store is the run-state persistence the sequencer needs.
type Store interface {
	ListDueRuns(ctx context.Context, now time.Time, limit int) ([]repository.DueRun, error)
	GetRun(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) (domain.FunnelRunState, error)
	GetFunnel(ctx context.Context, ownerID uuid.UUID, funnelType domain.FunnelType) ([]domain.Step, error)
	UpdateRun(ctx context.Context, run domain.FunnelRunState, expectedIndex int) error
	SignalCount(ctx context.Context, leadID uuid.UUID, signal domain.ConditionRule) (int, error)
	LeadFields(ctx context.Context, leadID uuid.UUID) (map[string]string, error)
	AgentFields(ctx context.Context, ownerID uuid.UUID) (map[string]string, error)
	SignatureOverride(ctx context.Context, ownerID uuid.UUID) (string, error)
	LeadContact(ctx context.Context, leadID uuid.UUID) (email, phone string, err error)
}

// Dispatcher sends one rendered step to its channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, step domain.Step, content dispatch.Content, rcpt dispatch.Recipient) (dispatch.Outcome, error)
}

// StepScheduler enqueues a wake-up for the moment a run's next step comes
// due. Optional: without one, runs are picked up by the periodic sweep.
type StepScheduler interface {
	ScheduleStepDue(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType, runAt time.Time) error
}

// Summary reports one processing pass.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}

type Sequencer struct {
	store      Store
	dispatcher Dispatcher
	scheduler  StepScheduler
	bus        events.Bus
	log        *logger.Logger
	batchSize  int
	now        func() time.Time
}

func New(store Store, dispatcher Dispatcher, scheduler StepScheduler, bus events.Bus, log *logger.Logger) *Sequencer {
	return &Sequencer{
		store:      store,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		bus:        bus,
		log:        log,
		batchSize:  200,
		now:        time.Now,
	}
}

// ProcessDue runs one pass over due runs. Failures are isolated per run: one
// lead's broken step never blocks the rest of the batch.
func (s *Sequencer) ProcessDue(ctx context.Context) (Summary, error) {
	now := s.now()

	due, err := s.store.ListDueRuns(ctx, now, s.batchSize)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, item := range due {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		err := s.processRun(ctx, item, now)
		switch {
		case err == nil:
			summary.Processed++
		case errors.Is(err, repository.ErrStaleRun):
			// Lost to a concurrent advance. The other writer already moved
			// the run, nothing to retry.
			summary.Skipped++
		default:
			summary.Failed++
			s.log.JobError("funnel_sequencer", item.Run.LeadID.String(), err)
		}
	}

	s.log.JobSummary("funnel_sequencer", summary.Processed, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Sequencer) processRun(ctx context.Context, due repository.DueRun, now time.Time) error {
	run := due.Run
	steps := due.Steps
	if run.CurrentStepIndex >= len(steps) {
		// A shortened funnel can strand an index past the end. Close the run
		// out rather than leaving it due forever.
		expected := run.CurrentStepIndex
		run.Status = domain.RunCompleted
		run.LastAdvancedAt = now
		if err := s.store.UpdateRun(ctx, run, expected); err != nil {
			return err
		}
		s.publishCompleted(ctx, run)
		return nil
	}

	step := steps[run.CurrentStepIndex]
	expected := run.CurrentStepIndex

	switch step.Type {
	case domain.StepCondition:
		return s.evaluateCondition(ctx, run, step, steps, expected, now)

	case domain.StepWait, domain.StepCustom:
		if err := run.Advance(len(steps), now); err != nil {
			return err
		}
		if err := s.store.UpdateRun(ctx, run, expected); err != nil {
			return err
		}
		s.afterAdvance(ctx, run, steps)
		return nil
	}

	return s.dispatchStep(ctx, run, step, steps, expected, now)
}

// evaluateCondition checks the step's behavior signal against its threshold.
// Met advances normally; unmet skips the next step as well, so the branch
// taken when a lead never opened or clicked bypasses the follow-up written
// for engaged leads.
func (s *Sequencer) evaluateCondition(ctx context.Context, run domain.FunnelRunState, step domain.Step, steps []domain.Step, expected int, now time.Time) error {
	rule, err := domain.ParseConditionRule(string(step.ConditionRule))
	if err != nil {
		return err
	}

	count, err := s.store.SignalCount(ctx, run.LeadID, rule)
	if err != nil {
		return err
	}

	if count >= step.ConditionValue {
		err = run.Advance(len(steps), now)
	} else {
		err = run.Skip(len(steps), now)
	}
	if err != nil {
		return err
	}

	if err := s.store.UpdateRun(ctx, run, expected); err != nil {
		return err
	}
	s.afterAdvance(ctx, run, steps)
	return nil
}

func (s *Sequencer) dispatchStep(ctx context.Context, run domain.FunnelRunState, step domain.Step, steps []domain.Step, expected int, now time.Time) error {
	content, rcpt, err := s.render(ctx, run, step)
	if err != nil {
		return err
	}

	outcome, err := s.dispatcher.Dispatch(ctx, step, content, rcpt)
	if err != nil {
		// The run stays where it is and the step remains due.
		return err
	}

	if err := run.Advance(len(steps), now); err != nil {
		return err
	}
	if err := s.store.UpdateRun(ctx, run, expected); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.FunnelStepDispatched{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     run.LeadID,
		OwnerID:    run.OwnerID,
		FunnelType: string(run.FunnelType),
		StepID:     step.ID,
		StepIndex:  expected,
		Channel:    outcome.Channel,
	})
	s.afterAdvance(ctx, run, steps)
	return nil
}

// render builds the merge context and resolves the step's subject and body.
func (s *Sequencer) render(ctx context.Context, run domain.FunnelRunState, step domain.Step) (dispatch.Content, dispatch.Recipient, error) {
	leadFields, err := s.store.LeadFields(ctx, run.LeadID)
	if err != nil {
		return dispatch.Content{}, dispatch.Recipient{}, err
	}
	agentFields, err := s.store.AgentFields(ctx, run.OwnerID)
	if err != nil {
		return dispatch.Content{}, dispatch.Recipient{}, err
	}
	signature, err := s.store.SignatureOverride(ctx, run.OwnerID)
	if err != nil {
		return dispatch.Content{}, dispatch.Recipient{}, err
	}

	mergeCtx := template.MergeContext{Lead: leadFields, Agent: agentFields}
	opts := []template.Option{}
	if signature != "" {
		opts = append(opts, template.WithSignatureOverride(signature))
	}

	content := dispatch.Content{
		Subject:  template.Resolve(step.Subject, mergeCtx, opts...),
		Body:     template.Resolve(step.ContentTemplate, mergeCtx, opts...),
		MediaURL: step.MediaURL,
	}
	if step.IncludeUnsubscribe && step.Type == domain.StepEmail {
		content.Body += unsubscribeFooter
	}

	email, phone, err := s.store.LeadContact(ctx, run.LeadID)
	if err != nil {
		return dispatch.Content{}, dispatch.Recipient{}, err
	}

	rcpt := dispatch.Recipient{
		LeadID:  run.LeadID,
		OwnerID: run.OwnerID,
		Email:   email,
		Phone:   phone,
	}
	return content, rcpt, nil
}

// afterAdvance publishes completion or schedules the next wake-up for a run
// that just moved forward.
func (s *Sequencer) afterAdvance(ctx context.Context, run domain.FunnelRunState, steps []domain.Step) {
	if run.Status == domain.RunCompleted {
		s.publishCompleted(ctx, run)
		return
	}
	if s.scheduler == nil || run.Status != domain.RunActive || run.CurrentStepIndex >= len(steps) {
		return
	}

	dueAt := run.DueAt(steps[run.CurrentStepIndex])
	if err := s.scheduler.ScheduleStepDue(ctx, run.LeadID, run.FunnelType, dueAt); err != nil {
		// The sweep will pick the run up.
		s.log.JobError("funnel_sequencer", run.LeadID.String(), err)
	}
}

// ProcessLead handles one lead's wake-up task. It tolerates stale or early
// wake-ups: a run that is gone, not yet due, or concurrently advanced is
// simply left alone.
func (s *Sequencer) ProcessLead(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) error {
	now := s.now()

	run, err := s.store.GetRun(ctx, leadID, funnelType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if run.Status != domain.RunActive {
		return nil
	}

	steps, err := s.store.GetFunnel(ctx, run.OwnerID, funnelType)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if run.CurrentStepIndex < len(steps) && !run.IsDue(steps[run.CurrentStepIndex], now) {
		return nil
	}

	err = s.processRun(ctx, repository.DueRun{Run: run, Steps: steps}, now)
	if errors.Is(err, repository.ErrStaleRun) {
		return nil
	}
	return err
}

func (s *Sequencer) publishCompleted(ctx context.Context, run domain.FunnelRunState) {
	s.bus.Publish(ctx, events.FunnelRunCompleted{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     run.LeadID,
		OwnerID:    run.OwnerID,
		FunnelType: string(run.FunnelType),
	})
}
