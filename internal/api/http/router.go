package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zapdesk/zapdesk/internal/api/http/handlers"
	"github.com/zapdesk/zapdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Transport      *handlers.TransportHandler
	WS             *handlers.WSHandler
	Metrics        *handlers.MetricsHandler
	Classifier     *handlers.ClassifierHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	// Webhooks pushed by the transport bridge.
	app.Post("/transport/inbound", cfg.Transport.Inbound)
	app.Post("/transport/fault", cfg.Transport.Fault)

	app.Get("/ws", cfg.WS.UpgradeGuard, cfg.WS.Serve())

	operator := app.Group("", cfg.AuthMiddleware.Handle)
	operator.Get("/queues/:id/tickets", cfg.Tickets.ListOpen)
	operator.Get("/tickets/:id", cfg.Tickets.Get)
	operator.Post("/tickets/:id/assign", cfg.Tickets.Assign)
	operator.Post("/tickets/:id/transfer", cfg.Tickets.Transfer)
	operator.Post("/tickets/:id/close", cfg.Tickets.Close)
	operator.Post("/tickets/:id/messages", cfg.Tickets.Reply)

	operator.Get("/transport/status", cfg.Transport.Status)
	operator.Get("/transport/guard", cfg.Transport.GuardStats)
	operator.Get("/metrics", cfg.Metrics.Get)

	admin := operator.Group("", auth.RequireAdmin())
	admin.Post("/transport/connect", cfg.Transport.ConnectByCode)
	admin.Post("/transport/pair", cfg.Transport.StartPairing)
	admin.Post("/transport/disconnect", cfg.Transport.Disconnect)
	admin.Post("/transport/guard/reset", cfg.Transport.GuardReset)
	admin.Post("/classifier/probe", cfg.Classifier.Probe)
}
