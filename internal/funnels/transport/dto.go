// Package transport defines the request and response shapes for the funnels
// HTTP API.
package transport

import (
	"time"

	"nurture_backend/internal/funnels/domain"
)

// StepDTO is the wire shape of one funnel step.
type StepDTO struct {
	ID                 string `json:"id" validate:"required"`
	Title              string `json:"title" validate:"required"`
	Description        string `json:"description,omitempty"`
	Icon               string `json:"icon,omitempty"`
	Delay              string `json:"delay"`
	Type               string `json:"type" validate:"required"`
	Subject            string `json:"subject,omitempty"`
	Content            string `json:"content,omitempty"`
	MediaURL           string `json:"mediaUrl,omitempty"`
	ConditionRule      string `json:"conditionRule,omitempty"`
	ConditionValue     int    `json:"conditionValue,omitempty"`
	IncludeUnsubscribe bool   `json:"includeUnsubscribe,omitempty"`
	TrackOpens         bool   `json:"trackOpens,omitempty"`
}

// ToDomain converts a wire step to the domain type. Legacy type aliases are
// accepted.
func (d StepDTO) ToDomain() (domain.Step, error) {
	stepType, err := domain.ParseStepType(d.Type)
	if err != nil {
		return domain.Step{}, err
	}
	return domain.Step{
		ID:                 d.ID,
		Title:              d.Title,
		Description:        d.Description,
		Icon:               d.Icon,
		Delay:              d.Delay,
		Type:               stepType,
		Subject:            d.Subject,
		ContentTemplate:    d.Content,
		MediaURL:           d.MediaURL,
		ConditionRule:      domain.ConditionRule(d.ConditionRule),
		ConditionValue:     d.ConditionValue,
		IncludeUnsubscribe: d.IncludeUnsubscribe,
		TrackOpens:         d.TrackOpens,
	}, nil
}

// FromDomainStep converts a domain step to its wire shape.
func FromDomainStep(s domain.Step) StepDTO {
	return StepDTO{
		ID:                 s.ID,
		Title:              s.Title,
		Description:        s.Description,
		Icon:               s.Icon,
		Delay:              s.Delay,
		Type:               string(s.Type),
		Subject:            s.Subject,
		Content:            s.ContentTemplate,
		MediaURL:           s.MediaURL,
		ConditionRule:      string(s.ConditionRule),
		ConditionValue:     s.ConditionValue,
		IncludeUnsubscribe: s.IncludeUnsubscribe,
		TrackOpens:         s.TrackOpens,
	}
}

// FromDomainSteps converts a step list.
func FromDomainSteps(steps []domain.Step) []StepDTO {
	out := make([]StepDTO, 0, len(steps))
	for _, s := range steps {
		out = append(out, FromDomainStep(s))
	}
	return out
}

// SaveFunnelRequest replaces a funnel's step list.
type SaveFunnelRequest struct {
	Steps []StepDTO `json:"steps" validate:"required,min=1,dive"`
}

// EnterLeadRequest enrolls a lead into a funnel.
type EnterLeadRequest struct {
	LeadID string `json:"leadId" validate:"required,uuid"`
}

// RecordSignalRequest records a behavioral signal for a lead.
type RecordSignalRequest struct {
	Signal string `json:"signal" validate:"required"`
}

// TestSendRequest previews one step to the operator.
type TestSendRequest struct {
	StepID string `json:"stepId" validate:"required"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Phone  string `json:"phone,omitempty"`
}

// RunResponse is the wire shape of a funnel run.
type RunResponse struct {
	LeadID           string    `json:"leadId"`
	OwnerID          string    `json:"ownerId"`
	FunnelType       string    `json:"funnelType"`
	CurrentStepIndex int       `json:"currentStepIndex"`
	EnteredAt        time.Time `json:"enteredAt"`
	LastAdvancedAt   time.Time `json:"lastAdvancedAt"`
	Status           string    `json:"status"`
}

// FromDomainRun converts a run to its wire shape.
func FromDomainRun(run domain.FunnelRunState) RunResponse {
	return RunResponse{
		LeadID:           run.LeadID.String(),
		OwnerID:          run.OwnerID.String(),
		FunnelType:       string(run.FunnelType),
		CurrentStepIndex: run.CurrentStepIndex,
		EnteredAt:        run.EnteredAt,
		LastAdvancedAt:   run.LastAdvancedAt,
		Status:           string(run.Status),
	}
}

// TestSendResponse reports a preview send's outcome to the operator.
type TestSendResponse struct {
	Channel string `json:"channel"`
	Target  string `json:"target,omitempty"`
}
