package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-lifecycle/internal/api/http/handlers"
	"github.com/spec-kit/ticket-lifecycle/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Lifecycle      *handlers.LifecycleHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/internal/metrics", cfg.Health.Metrics)

	tickets := app.Group("/tickets/:id", cfg.AuthMiddleware.Handle)
	tickets.Get("/transitions", cfg.Lifecycle.ListTransitions)
	tickets.Post("/transitions", cfg.Lifecycle.ChangeStatus)
	tickets.Get("/sla", cfg.SLA.GetStatus)
	tickets.Post("/sla/pause", cfg.SLA.Pause)
	tickets.Post("/sla/resume", cfg.SLA.Resume)
}
