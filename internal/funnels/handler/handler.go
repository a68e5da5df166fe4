package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/funnels/domain"
	"nurture_backend/internal/funnels/service"
	"nurture_backend/internal/funnels/transport"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/validator"
)

// Handler handles HTTP requests for funnels and runs.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOwnerID   = "invalid owner id"
	msgInvalidLeadID    = "invalid lead id"
	msgInvalidFunnel    = "invalid funnel type"
)

// New creates a new funnels handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListFunnels retrieves all funnels for an agent.
// GET /api/v1/agents/:ownerId/funnels
func (h *Handler) ListFunnels(c *gin.Context) {
	ownerID, ok := paramUUID(c, "ownerId", msgInvalidOwnerID)
	if !ok {
		return
	}

	funnels, err := h.svc.ListFunnels(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make(map[string][]transport.StepDTO, len(funnels))
	for funnelType, steps := range funnels {
		out[string(funnelType)] = transport.FromDomainSteps(steps)
	}
	httpkit.OK(c, out)
}

// GetFunnel retrieves one funnel's steps.
// GET /api/v1/agents/:ownerId/funnels/:funnelType
func (h *Handler) GetFunnel(c *gin.Context) {
	ownerID, ok := paramUUID(c, "ownerId", msgInvalidOwnerID)
	if !ok {
		return
	}
	funnelType, ok := paramFunnelType(c)
	if !ok {
		return
	}

	steps, err := h.svc.GetFunnel(c.Request.Context(), ownerID, funnelType)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomainSteps(steps))
}

// SaveFunnel replaces one funnel's steps.
// PUT /api/v1/agents/:ownerId/funnels/:funnelType
func (h *Handler) SaveFunnel(c *gin.Context) {
	ownerID, ok := paramUUID(c, "ownerId", msgInvalidOwnerID)
	if !ok {
		return
	}
	funnelType, ok := paramFunnelType(c)
	if !ok {
		return
	}

	var req transport.SaveFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	steps := make([]domain.Step, 0, len(req.Steps))
	for _, dto := range req.Steps {
		step, err := dto.ToDomain()
		if httpkit.HandleError(c, err) {
			return
		}
		steps = append(steps, step)
	}

	if httpkit.HandleError(c, h.svc.SaveFunnel(c.Request.Context(), ownerID, funnelType, steps)) {
		return
	}
	httpkit.OK(c, gin.H{"saved": true})
}

// EnterLead enrolls a lead into a funnel.
// POST /api/v1/agents/:ownerId/funnels/:funnelType/enter
func (h *Handler) EnterLead(c *gin.Context) {
	ownerID, ok := paramUUID(c, "ownerId", msgInvalidOwnerID)
	if !ok {
		return
	}
	funnelType, ok := paramFunnelType(c)
	if !ok {
		return
	}

	var req transport.EnterLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	run, err := h.svc.EnterLead(c.Request.Context(), leadID, ownerID, funnelType)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.FromDomainRun(run))
}

// TestSend previews one step to the operator's own address or phone.
// POST /api/v1/agents/:ownerId/funnels/:funnelType/test-send
func (h *Handler) TestSend(c *gin.Context) {
	ownerID, ok := paramUUID(c, "ownerId", msgInvalidOwnerID)
	if !ok {
		return
	}
	funnelType, ok := paramFunnelType(c)
	if !ok {
		return
	}

	var req transport.TestSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	outcome, err := h.svc.TestSend(c.Request.Context(), ownerID, funnelType, req.StepID, dispatch.TestTarget{
		Email: req.Email,
		Phone: req.Phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.TestSendResponse{Channel: outcome.Channel, Target: outcome.Target})
}

// GetRun retrieves a lead's run state.
// GET /api/v1/leads/:leadId/runs/:funnelType
func (h *Handler) GetRun(c *gin.Context) {
	leadID, ok := paramUUID(c, "leadId", msgInvalidLeadID)
	if !ok {
		return
	}
	funnelType, ok := paramFunnelType(c)
	if !ok {
		return
	}

	run, err := h.svc.GetRun(c.Request.Context(), leadID, funnelType)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromDomainRun(run))
}

// PauseRun suspends a run.
// POST /api/v1/leads/:leadId/runs/:funnelType/pause
func (h *Handler) PauseRun(c *gin.Context) {
	h.runTransition(c, h.svc.PauseRun, "paused")
}

// ResumeRun reactivates a paused run.
// POST /api/v1/leads/:leadId/runs/:funnelType/resume
func (h *Handler) ResumeRun(c *gin.Context) {
	h.runTransition(c, h.svc.ResumeRun, "active")
}

// CancelRun terminates a run.
// POST /api/v1/leads/:leadId/runs/:funnelType/cancel
func (h *Handler) CancelRun(c *gin.Context) {
	h.runTransition(c, h.svc.CancelRun, "cancelled")
}

// RecordSignal records a behavioral signal for a lead.
// POST /api/v1/leads/:leadId/signals
func (h *Handler) RecordSignal(c *gin.Context) {
	leadID, ok := paramUUID(c, "leadId", msgInvalidLeadID)
	if !ok {
		return
	}

	var req transport.RecordSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.RecordSignal(c.Request.Context(), leadID, req.Signal)) {
		return
	}
	httpkit.OK(c, gin.H{"recorded": true})
}

func (h *Handler) runTransition(c *gin.Context, apply func(ctx context.Context, leadID uuid.UUID, funnelType domain.FunnelType) error, status string) {
	leadID, ok := paramUUID(c, "leadId", msgInvalidLeadID)
	if !ok {
		return
	}
	funnelType, ok := paramFunnelType(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, apply(c.Request.Context(), leadID, funnelType)) {
		return
	}
	httpkit.OK(c, gin.H{"status": status})
}

func paramUUID(c *gin.Context, name, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msg, nil)
		return uuid.Nil, false
	}
	return id, true
}

func paramFunnelType(c *gin.Context) (domain.FunnelType, bool) {
	funnelType, err := domain.ParseFunnelType(c.Param("funnelType"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidFunnel, nil)
		return "", false
	}
	return funnelType, true
}
