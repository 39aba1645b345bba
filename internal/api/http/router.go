package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Approvals      *handlers.ApprovalsHandler
	Work           *handlers.WorkHandler
	Assets         *handlers.AssetsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)

	assets := protected.Group("/assets")
	assets.Get("", cfg.Assets.List)
	assets.Get("/:id", cfg.Assets.Get)

	tickets := protected.Group("/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)

	// Decision endpoints are manager-only; department scoping happens in the
	// approval service where the ticket row is in hand.
	tickets.Post("/:id/approve", auth.RequireRole(domain.RoleManager), cfg.Approvals.Approve)
	tickets.Post("/:id/reject", auth.RequireRole(domain.RoleManager), cfg.Approvals.Reject)

	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Work.Assign)
	tickets.Post("/:id/status", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Work.UpdateStatus)
	tickets.Post("/:id/resolve", auth.RequireRole(domain.RoleManager, domain.RoleAdmin), cfg.Work.Resolve)
}
