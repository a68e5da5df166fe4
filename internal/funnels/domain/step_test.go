package domain

import (
	"testing"

	"nurture_backend/platform/apperr"
)

func TestParseStepTypeAcceptsLegacyAliases(t *testing.T) {
	cases := map[string]StepType{
		"Email":   StepEmail,
		"email":   StepEmail,
		"Text":    StepSMS,
		"sms":     StepSMS,
		"AI Call": StepVoice,
		"Call":    StepVoice,
		"task":    StepTask,
		"Wait":    StepWait,
		"custom":  StepCustom,
	}
	for raw, want := range cases {
		got, err := ParseStepType(raw)
		if err != nil {
			t.Fatalf("parse %q failed: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q = %s, expected %s", raw, got, want)
		}
	}
}

func TestParseStepTypeRejectsUnknown(t *testing.T) {
	if _, err := ParseStepType("carrier pigeon"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseFunnelType(t *testing.T) {
	for _, ft := range DefaultFunnelTypes() {
		if _, err := ParseFunnelType(string(ft)); err != nil {
			t.Fatalf("expected %s to parse, got %v", ft, err)
		}
	}
	if _, err := ParseFunnelType("nonsense"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseConditionRuleRejectsUnknown(t *testing.T) {
	if _, err := ParseConditionRule("email_opened"); err != nil {
		t.Fatalf("expected known rule to parse, got %v", err)
	}
	if _, err := ParseConditionRule("opened"); !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateStepsRejectsDuplicateIDs(t *testing.T) {
	steps := []Step{
		{ID: "s1", Type: StepWait},
		{ID: "s1", Type: StepWait},
	}
	if err := ValidateSteps(steps); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected duplicate id to fail, got %v", err)
	}
}

func TestValidateStepsRequiresTemplatesOnSendSteps(t *testing.T) {
	steps := []Step{{ID: "s1", Type: StepEmail}}
	if err := ValidateSteps(steps); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected missing template to fail, got %v", err)
	}
}

func TestValidateStepsRequiresKnownConditionRule(t *testing.T) {
	steps := []Step{{ID: "s1", Type: StepCondition, ConditionRule: "clicked_something"}}
	if err := ValidateSteps(steps); err == nil {
		t.Fatal("expected unknown condition rule to fail")
	}
}

func TestDefaultStepsAreValid(t *testing.T) {
	for _, funnelType := range DefaultFunnelTypes() {
		steps := DefaultSteps(funnelType)
		if len(steps) == 0 {
			t.Fatalf("expected default steps for %s", funnelType)
		}
		if err := ValidateSteps(steps); err != nil {
			t.Fatalf("default %s funnel is invalid: %v", funnelType, err)
		}
	}
}

func TestDefaultStepsUnknownTypeIsNil(t *testing.T) {
	if steps := DefaultSteps(FunnelType("nonsense")); steps != nil {
		t.Fatalf("expected nil for unknown funnel type, got %d steps", len(steps))
	}
}
