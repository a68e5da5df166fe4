package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"nurture_backend/internal/scoring"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/validator"
)

// Handler handles HTTP requests for lead scoring and analytics.
type Handler struct {
	svc *scoring.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidOwnerID   = "invalid owner id"
	msgInvalidLeadID    = "invalid lead id"
)

// New creates a new scoring handler.
func New(svc *scoring.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ScoreRequest carries the lead facts for a full catalog evaluation.
type ScoreRequest struct {
	CreatedAt   time.Time `json:"createdAt" validate:"required"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Status      string    `json:"status,omitempty"`
	Source      string    `json:"source,omitempty"`
	LastMessage string    `json:"lastMessage,omitempty"`
}

// ScoreResponse is a lead's score with its rule breakdown.
type ScoreResponse struct {
	LeadID      string            `json:"leadId"`
	TotalPoints int               `json:"totalPoints"`
	Tier        string            `json:"tier"`
	Breakdown   []scoring.Applied `json:"breakdown,omitempty"`
}

// ApplyRule fires one scoring rule for a lead.
// POST /api/v1/leads/:leadId/score/rules/:ruleId
func (h *Handler) ApplyRule(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	state, err := h.svc.ApplyRule(c.Request.Context(), leadID, c.Param("ruleId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ScoreResponse{
		LeadID:      state.LeadID.String(),
		TotalPoints: state.TotalPoints,
		Tier:        state.Tier,
	})
}

// Score evaluates the full rule catalog against submitted lead facts.
// POST /api/v1/leads/:leadId/score
func (h *Handler) Score(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	state, breakdown, err := h.svc.Score(c.Request.Context(), leadID, scoring.LeadFacts{
		CreatedAt:   req.CreatedAt,
		Phone:       req.Phone,
		Email:       req.Email,
		Status:      req.Status,
		Source:      req.Source,
		LastMessage: req.LastMessage,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, ScoreResponse{
		LeadID:      state.LeadID.String(),
		TotalPoints: state.TotalPoints,
		Tier:        state.Tier,
		Breakdown:   breakdown,
	})
}

// SourceBreakdown reports per-source lead counts and conversion rates.
// GET /api/v1/agents/:ownerId/scoring/breakdown
func (h *Handler) SourceBreakdown(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidOwnerID, nil)
		return
	}

	stats, err := h.svc.SourceBreakdown(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// Distribution reports per-tier counts and score extremes.
// GET /api/v1/agents/:ownerId/scoring/distribution
func (h *Handler) Distribution(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidOwnerID, nil)
		return
	}

	dist, err := h.svc.Distribution(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dist)
}
