package transport

import (
	"testing"
	"time"

	"nurture_backend/internal/funnels/domain"

	"github.com/google/uuid"
)

func TestStepDTOToDomainMapsLegacyTypes(t *testing.T) {
	dto := StepDTO{
		ID:      "s1",
		Title:   "Intro call",
		Delay:   "+1 day",
		Type:    "AI Call",
		Content: "Hi {{lead.firstName}}",
	}

	step, err := dto.ToDomain()
	if err != nil {
		t.Fatalf("to domain failed: %v", err)
	}
	if step.Type != domain.StepVoice {
		t.Fatalf("expected voice step, got %s", step.Type)
	}
	if step.ContentTemplate != "Hi {{lead.firstName}}" {
		t.Fatalf("unexpected template %q", step.ContentTemplate)
	}
}

func TestStepDTOToDomainRejectsUnknownType(t *testing.T) {
	dto := StepDTO{ID: "s1", Title: "x", Type: "hologram"}
	if _, err := dto.ToDomain(); err == nil {
		t.Fatal("expected unknown step type to fail")
	}
}

func TestStepDTORoundTrip(t *testing.T) {
	step := domain.Step{
		ID:                 "s1",
		Title:              "Welcome email",
		Delay:              "0 min",
		Type:               domain.StepEmail,
		Subject:            "Hello",
		ContentTemplate:    "Hi there",
		ConditionRule:      domain.RuleEmailOpened,
		ConditionValue:     2,
		IncludeUnsubscribe: true,
		TrackOpens:         true,
	}

	back, err := FromDomainStep(step).ToDomain()
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if back != step {
		t.Fatalf("expected %+v, got %+v", step, back)
	}
}

func TestFromDomainRun(t *testing.T) {
	entry := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	run := domain.NewRun(uuid.New(), uuid.New(), domain.FunnelWelcome, entry)

	resp := FromDomainRun(run)
	if resp.LeadID != run.LeadID.String() {
		t.Fatalf("unexpected lead id %s", resp.LeadID)
	}
	if resp.FunnelType != "welcome" || resp.Status != "active" || resp.CurrentStepIndex != 0 {
		t.Fatalf("unexpected response %+v", resp)
	}
}
