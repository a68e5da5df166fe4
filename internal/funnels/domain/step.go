// Package domain holds the funnel engine's core types and pure logic:
// steps, run state transitions, and delay parsing. It has no persistence
// or transport dependencies.
package domain

import (
	"fmt"

	"nurture_backend/platform/apperr"

	"github.com/google/uuid"
)

// StepType is the closed set of step kinds a funnel may contain. The legacy
// dashboard branched on free-form type strings ('Call', 'AI Call', 'Voice',
// 'sms', ...); that is collapsed here into one enum so an unrecognized kind
// is a parse error instead of silently landing in the email branch.
type StepType string

const (
	StepEmail     StepType = "email"
	StepSMS       StepType = "sms"
	StepVoice     StepType = "voice"
	StepTask      StepType = "task"
	StepWait      StepType = "wait"
	StepCondition StepType = "condition"
	StepCustom    StepType = "custom"
)

// ParseStepType maps the step type spellings found in stored funnels to the
// canonical enum. Matching is intentionally tolerant of the legacy aliases.
func ParseStepType(raw string) (StepType, error) {
	switch raw {
	case "Email", "email":
		return StepEmail, nil
	case "SMS", "sms", "Text", "text":
		return StepSMS, nil
	case "Voice", "voice", "Call", "call", "AI Call":
		return StepVoice, nil
	case "Task", "task":
		return StepTask, nil
	case "Wait", "wait":
		return StepWait, nil
	case "Condition", "condition":
		return StepCondition, nil
	case "Custom", "custom":
		return StepCustom, nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown step type %q", raw))
}

// IsSend reports whether the step type dispatches to an external channel.
func (t StepType) IsSend() bool {
	switch t {
	case StepEmail, StepSMS, StepVoice:
		return true
	}
	return false
}

// ConditionRule names the behavioral signal a condition step compares against.
type ConditionRule string

const (
	RuleEmailOpened ConditionRule = "email_opened"
	RuleLinkClicked ConditionRule = "link_clicked"
	RuleReplied     ConditionRule = "replied"
)

// ParseConditionRule validates a stored condition rule. Unknown rules are a
// configuration error: evaluation must fail loudly, never default.
func ParseConditionRule(raw string) (ConditionRule, error) {
	switch ConditionRule(raw) {
	case RuleEmailOpened, RuleLinkClicked, RuleReplied:
		return ConditionRule(raw), nil
	}
	return "", apperr.Configuration(fmt.Sprintf("unknown condition rule %q", raw))
}

// FunnelType identifies which lifecycle sequence a funnel covers.
type FunnelType string

const (
	FunnelWelcome     FunnelType = "welcome"
	FunnelHomeBuyer   FunnelType = "home_buyer"
	FunnelListing     FunnelType = "listing"
	FunnelPostShowing FunnelType = "post_showing"
)

// ParseFunnelType validates a funnel type string.
func ParseFunnelType(raw string) (FunnelType, error) {
	switch FunnelType(raw) {
	case FunnelWelcome, FunnelHomeBuyer, FunnelListing, FunnelPostShowing:
		return FunnelType(raw), nil
	}
	return "", apperr.Validation(fmt.Sprintf("unknown funnel type %q", raw))
}

// Step is one action in a funnel: a channel send, a wait, a human task, or a
// conditional branch point.
type Step struct {
	ID                 string
	Title              string
	Description        string
	Icon               string
	Delay              string // relative to prior step completion, e.g. "+1 day"
	Type               StepType
	Subject            string
	ContentTemplate    string
	MediaURL           string
	ConditionRule      ConditionRule
	ConditionValue     int
	IncludeUnsubscribe bool
	TrackOpens         bool
}

// DelayMinutes returns the parsed delay for due-time computation.
func (s Step) DelayMinutes() int {
	return ParseDelay(s.Delay)
}

// Funnel is an ordered sequence of automation steps owned by one agent for
// one lifecycle stage. Step order is the sequence order.
type Funnel struct {
	OwnerID    uuid.UUID
	FunnelType FunnelType
	Steps      []Step
}

// ValidateSteps checks the per-step invariants before a funnel is saved or
// executed: unique IDs, templates on send steps, rules on condition steps.
func ValidateSteps(steps []Step) error {
	seen := make(map[string]struct{}, len(steps))
	for i, step := range steps {
		if step.ID == "" {
			return apperr.Validation(fmt.Sprintf("step %d is missing an id", i))
		}
		if _, dup := seen[step.ID]; dup {
			return apperr.Validation(fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = struct{}{}

		if ParseDelay(step.Delay) < 0 {
			return apperr.Validation(fmt.Sprintf("step %q has a negative delay", step.ID))
		}

		switch step.Type {
		case StepEmail, StepSMS:
			if step.ContentTemplate == "" {
				return apperr.Validation(fmt.Sprintf("step %q (%s) requires a content template", step.ID, step.Type))
			}
		case StepCondition:
			if _, err := ParseConditionRule(string(step.ConditionRule)); err != nil {
				return err
			}
		}
	}
	return nil
}
