// Package funnels provides the nurture funnel bounded context module.
package funnels

import (
	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/events"
	"nurture_backend/internal/funnels/handler"
	"nurture_backend/internal/funnels/repository"
	"nurture_backend/internal/funnels/sequencer"
	"nurture_backend/internal/funnels/service"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the funnels bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	seq     *sequencer.Sequencer
	repo    *repository.Repository
}

// NewModule wires the funnel repository, sequencer, service, and handler.
// The scheduler may be nil; the periodic sweep then carries all wake-ups.
func NewModule(pool *pgxpool.Pool, dispatcher *dispatch.Dispatcher, scheduler sequencer.StepScheduler, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	seq := sequencer.New(repo, dispatcher, scheduler, bus, log)
	svc := service.New(repo, dispatcher, scheduler, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		seq:     seq,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "funnels"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Sequencer returns the step sequencer for the worker process.
func (m *Module) Sequencer() *sequencer.Sequencer {
	return m.seq
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts funnel routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	agents := ctx.V1.Group("/agents/:ownerId")
	agents.GET("/funnels", m.handler.ListFunnels)
	agents.GET("/funnels/:funnelType", m.handler.GetFunnel)
	agents.PUT("/funnels/:funnelType", m.handler.SaveFunnel)
	agents.POST("/funnels/:funnelType/enter", m.handler.EnterLead)
	agents.POST("/funnels/:funnelType/test-send", m.handler.TestSend)

	leads := ctx.V1.Group("/leads/:leadId")
	leads.GET("/runs/:funnelType", m.handler.GetRun)
	leads.POST("/runs/:funnelType/pause", m.handler.PauseRun)
	leads.POST("/runs/:funnelType/resume", m.handler.ResumeRun)
	leads.POST("/runs/:funnelType/cancel", m.handler.CancelRun)
	leads.POST("/signals", m.handler.RecordSignal)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
