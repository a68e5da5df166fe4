// Package service orchestrates funnel management: catalog reads and saves,
// lead enrollment, run lifecycle transitions, behavior signals, and operator
// test sends.
package service

import (
	"context"
	"errors"
	"time"

	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/events"
	"nurture_backend/internal/funnels/domain"
	"nurture_backend/internal/funnels/repository"
	"nurture_backend/internal/funnels/template"
	"nurture_backend/platform/apperr"
	"nurture_backend/platform/logger"

	"github.com/google/uuid"
)

// StepScheduler enqueues the wake-up for a freshly enrolled lead's first
// step. Optional; the periodic sweep covers its absence.
type StepScheduler interface {
	ScheduleStepDue(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType, runAt time.Time) error
}

// TestSender previews a step without touching run state.
type TestSender interface {
	TestSend(ctx context.Context, step domain.Step, content dispatch.Content, target dispatch.TestTarget) (dispatch.Outcome, error)
}

type Service struct {
	repo      *repository.Repository
	sender    TestSender
	scheduler StepScheduler
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func New(repo *repository.Repository, sender TestSender, scheduler StepScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		scheduler: scheduler,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// ListFunnels returns the agent's funnels, seeding the shipped catalog for
// any lifecycle stage the agent has not customized yet.
func (s *Service) ListFunnels(ctx context.Context, ownerID uuid.UUID) (map[domain.FunnelType][]domain.Step, error) {
	funnels, err := s.repo.FetchFunnels(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, funnelType := range domain.DefaultFunnelTypes() {
		if _, ok := funnels[funnelType]; !ok {
			funnels[funnelType] = domain.DefaultSteps(funnelType)
		}
	}
	return funnels, nil
}

// GetFunnel returns one funnel's steps, falling back to the shipped catalog.
func (s *Service) GetFunnel(ctx context.Context, ownerID uuid.UUID, funnelType domain.FunnelType) ([]domain.Step, error) {
	steps, err := s.repo.GetFunnel(ctx, ownerID, funnelType)
	if errors.Is(err, repository.ErrNotFound) {
		if defaults := domain.DefaultSteps(funnelType); defaults != nil {
			return defaults, nil
		}
		return nil, apperr.NotFound("funnel not found")
	}
	return steps, err
}

// SaveFunnel validates and replaces a funnel's step list.
func (s *Service) SaveFunnel(ctx context.Context, ownerID uuid.UUID, funnelType domain.FunnelType, steps []domain.Step) error {
	if _, err := domain.ParseFunnelType(string(funnelType)); err != nil {
		return err
	}
	if err := domain.ValidateSteps(steps); err != nil {
		return err
	}
	return s.repo.SaveFunnelSteps(ctx, ownerID, funnelType, steps)
}

// SeedDefaults stores the shipped catalog for every lifecycle stage the
// agent does not have yet.
func (s *Service) SeedDefaults(ctx context.Context, ownerID uuid.UUID) error {
	existing, err := s.repo.FetchFunnels(ctx, ownerID)
	if err != nil {
		return err
	}

	for _, funnelType := range domain.DefaultFunnelTypes() {
		if _, ok := existing[funnelType]; ok {
			continue
		}
		if err := s.repo.SaveFunnelSteps(ctx, ownerID, funnelType, domain.DefaultSteps(funnelType)); err != nil {
			return err
		}
	}
	return nil
}

// EnterLead enrolls a lead at step 0 of a funnel. The first step's delay
// counts from this moment.
func (s *Service) EnterLead(ctx context.Context, leadID, ownerID uuid.UUID, funnelType domain.FunnelType) (domain.FunnelRunState, error) {
	if _, err := domain.ParseFunnelType(string(funnelType)); err != nil {
		return domain.FunnelRunState{}, err
	}

	if _, err := s.repo.GetRun(ctx, leadID, funnelType); err == nil {
		return domain.FunnelRunState{}, apperr.Conflict("lead is already enrolled in this funnel")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.FunnelRunState{}, err
	}

	steps, err := s.GetFunnel(ctx, ownerID, funnelType)
	if err != nil {
		return domain.FunnelRunState{}, err
	}
	if len(steps) == 0 {
		return domain.FunnelRunState{}, apperr.Validation("funnel has no steps")
	}

	run := domain.NewRun(leadID, ownerID, funnelType, s.now())
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return domain.FunnelRunState{}, err
	}

	s.bus.Publish(ctx, events.LeadEnteredFunnel{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		OwnerID:    ownerID,
		FunnelType: string(funnelType),
	})

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleStepDue(ctx, leadID, funnelType, run.DueAt(steps[0])); err != nil {
			s.log.JobError("funnel_enroll", leadID.String(), err)
		}
	}
	return run, nil
}

// GetRun returns a lead's run state for one funnel.
func (s *Service) GetRun(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) (domain.FunnelRunState, error) {
	run, err := s.repo.GetRun(ctx, leadID, funnelType)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.FunnelRunState{}, apperr.NotFound("funnel run not found")
	}
	return run, err
}

// PauseRun suspends a run at its current step.
func (s *Service) PauseRun(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) error {
	return s.transition(ctx, leadID, funnelType, (*domain.FunnelRunState).Pause)
}

// ResumeRun reactivates a paused run.
func (s *Service) ResumeRun(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) error {
	return s.transition(ctx, leadID, funnelType, (*domain.FunnelRunState).Resume)
}

// CancelRun terminates a run. The change lands before the next due-step
// evaluation; an in-flight dispatch is never interrupted.
func (s *Service) CancelRun(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) error {
	return s.transition(ctx, leadID, funnelType, (*domain.FunnelRunState).Cancel)
}

func (s *Service) transition(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType, apply func(*domain.FunnelRunState) error) error {
	run, err := s.GetRun(ctx, leadID, funnelType)
	if err != nil {
		return err
	}
	if err := apply(&run); err != nil {
		return err
	}
	return s.repo.UpdateRunStatus(ctx, leadID, funnelType, run.Status)
}

// RecordSignal increments a behavioral signal counter for a lead. Condition
// steps evaluate against these counts.
func (s *Service) RecordSignal(ctx context.Context, leadID uuid.UUID, signal string) error {
	rule, err := domain.ParseConditionRule(signal)
	if err != nil {
		return apperr.Validation("unknown signal " + signal)
	}

	if err := s.repo.RecordSignal(ctx, leadID, rule); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.BehaviorSignalRecorded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Signal:    string(rule),
	})
	return nil
}

// sampleLeadFields stands in for a real lead on test sends so the operator
// sees populated copy.
func sampleLeadFields() map[string]string {
	return map[string]string{
		"name":            "Sample Lead",
		"firstName":       "Sample",
		"email":           "sample@example.com",
		"interestAddress": "123 Main Street",
		"source":          "Website",
	}
}

// TestSend previews one step against the operator's own address or phone.
// It renders with the agent's real merge fields and a sample lead, and never
// touches run state.
func (s *Service) TestSend(ctx context.Context, ownerID uuid.UUID, funnelType domain.FunnelType, stepID string, target dispatch.TestTarget) (dispatch.Outcome, error) {
	steps, err := s.GetFunnel(ctx, ownerID, funnelType)
	if err != nil {
		return dispatch.Outcome{}, err
	}

	var step *domain.Step
	for i := range steps {
		if steps[i].ID == stepID {
			step = &steps[i]
			break
		}
	}
	if step == nil {
		return dispatch.Outcome{}, apperr.NotFound("step " + stepID + " not found")
	}

	agentFields, err := s.repo.AgentFields(ctx, ownerID)
	if err != nil {
		return dispatch.Outcome{}, err
	}
	signature, err := s.repo.SignatureOverride(ctx, ownerID)
	if err != nil {
		return dispatch.Outcome{}, err
	}

	mergeCtx := template.MergeContext{Lead: sampleLeadFields(), Agent: agentFields}
	opts := []template.Option{}
	if signature != "" {
		opts = append(opts, template.WithSignatureOverride(signature))
	}

	content := dispatch.Content{
		Subject:  template.Resolve(step.Subject, mergeCtx, opts...),
		Body:     template.Resolve(step.ContentTemplate, mergeCtx, opts...),
		MediaURL: step.MediaURL,
	}
	return s.sender.TestSend(ctx, *step, content, target)
}
