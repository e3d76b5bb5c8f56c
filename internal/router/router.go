package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terra-capital/market-api/internal/config"
	"github.com/terra-capital/market-api/internal/handler"
	"github.com/terra-capital/market-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MarketplaceHandler  *handler.MarketplaceHandler
	NotificationHandler *handler.NotificationHandler
	QRLinkHandler       *handler.QRLinkHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MarketplaceHandler != nil {
		marketplace := app.Group("/api/v1/marketplace", jwtMiddleware)
		deps.MarketplaceHandler.Register(marketplace)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v1/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.QRLinkHandler != nil {
		qr := app.Group("/api/v1/qr", jwtMiddleware)
		deps.QRLinkHandler.Register(qr)
	}
}
