// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"nurture_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

type InMemoryBus = events.InMemoryBus

// =============================================================================
// Funnel Domain Events
// =============================================================================

// LeadEnteredFunnel is published when a lead is enrolled into a funnel.
type LeadEnteredFunnel struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	FunnelType string    `json:"funnelType"`
}

func (e LeadEnteredFunnel) EventName() string { return "funnels.lead.entered" }

// FunnelStepDispatched is published after a step send succeeds and the run advances.
type FunnelStepDispatched struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	FunnelType string    `json:"funnelType"`
	StepID     string    `json:"stepId"`
	StepIndex  int       `json:"stepIndex"`
	Channel    string    `json:"channel"`
}

func (e FunnelStepDispatched) EventName() string { return "funnels.step.dispatched" }

// FunnelRunCompleted is published when a run moves past its last step.
type FunnelRunCompleted struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	FunnelType string    `json:"funnelType"`
}

func (e FunnelRunCompleted) EventName() string { return "funnels.run.completed" }

// BehaviorSignalRecorded is published when an engagement signal (open, click,
// reply) is observed for a lead. Condition steps evaluate against the
// accumulated counts these events produce.
type BehaviorSignalRecorded struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Signal string    `json:"signal"`
}

func (e BehaviorSignalRecorded) EventName() string { return "funnels.signal.recorded" }

// =============================================================================
// Scoring Domain Events
// =============================================================================

// LeadScoreChanged is published whenever a scoring rule application moves a
// lead's total points.
type LeadScoreChanged struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	TotalPoints int       `json:"totalPoints"`
	Tier        string    `json:"tier"`
	RuleID      string    `json:"ruleId"`
}

func (e LeadScoreChanged) EventName() string { return "scoring.lead.score_changed" }

// =============================================================================
// Retention Domain Events
// =============================================================================

// RetentionCampaignSent is published after a retention campaign record is
// created and its sends are enqueued.
type RetentionCampaignSent struct {
	BaseEvent
	UserID     uuid.UUID `json:"userId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Tier       string    `json:"tier"`
}

func (e RetentionCampaignSent) EventName() string { return "retention.campaign.sent" }

// HighChurnRiskDetected is published for users past the campaign limit who
// remain inactive. It raises an alert; it never sends a message itself.
type HighChurnRiskDetected struct {
	BaseEvent
	UserID        uuid.UUID `json:"userId"`
	Email         string    `json:"email"`
	CampaignsSent int       `json:"campaignsSent"`
	LastActivity  time.Time `json:"lastActivity"`
}

func (e HighChurnRiskDetected) EventName() string { return "retention.churn_risk.detected" }
