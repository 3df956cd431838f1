package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-api/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Users   *handlers.UsersHandler
	Metrics *handlers.MetricsHandler
}

// NewApp builds the fiber app. Routing is case sensitive so the policy sees the
// same path the router dispatches on.
func NewApp(name string) *fiber.App {
	return fiber.New(fiber.Config{
		AppName:               name,
		CaseSensitive:         true,
		StrictRouting:         false,
		DisableStartupMessage: true,
	})
}

// RegisterRoutes wires HTTP routes. Access rules live in auth.Policy, not here.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	api := app.Group("/api")
	api.Get("/me", cfg.Users.Me)

	users := api.Group("/users")
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	if cfg.Metrics != nil {
		api.Get("/metrics", cfg.Metrics.Snapshot)
	}
}
