package handler

import (
	"nurture_backend/internal/events"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/scoring"
	"nurture_backend/internal/scoring/repository"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scoring bounded context implementing http.Module.
type Module struct {
	handler *Handler
	service *scoring.Service
}

// NewModule wires the scoring repository, service, and handler.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := scoring.NewService(repo, bus, log)

	return &Module{
		handler: New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scoring"
}

// Service returns the service layer for external use.
func (m *Module) Service() *scoring.Service {
	return m.service
}

// RegisterRoutes mounts scoring routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.V1.Group("/leads/:leadId")
	leads.POST("/score", m.handler.Score)
	leads.POST("/score/rules/:ruleId", m.handler.ApplyRule)

	agents := ctx.V1.Group("/agents/:ownerId/scoring")
	agents.GET("/breakdown", m.handler.SourceBreakdown)
	agents.GET("/distribution", m.handler.Distribution)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
