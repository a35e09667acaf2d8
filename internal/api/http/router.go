package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/repair-board/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Cards      *handlers.CardsHandler
	Stats      *handlers.StatsHandler
	Extraction *handlers.ExtractionHandler
	WS         *handlers.WSHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/tickets", cfg.Cards.ListCards)
	app.Post("/tickets", cfg.Cards.CreateCard)
	app.Get("/tickets/:id", cfg.Cards.GetCard)
	app.Put("/tickets/:id", cfg.Cards.UpdateCard)
	app.Delete("/tickets/:id", cfg.Cards.DeleteCard)
	app.Get("/tickets/:id/history", cfg.Cards.GetHistory)

	app.Get("/stats", cfg.Stats.GetStats)
	app.Post("/extractions", cfg.Extraction.Extract)

	app.Get("/ws", cfg.WS.Upgrade, cfg.WS.Serve())
}
