package api

import (
	"github.com/actlive/actlive/pkg/api/routes"
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/gofiber/fiber/v2"
)

func SetupServer(listen string, aggregator *dataaggregator.Aggregator) error {
	webApp := NewServer(aggregator)

	return webApp.Listen(listen)
}

// NewServer builds the fiber app without binding a listener, so tests can
// drive it through app.Test.
func NewServer(aggregator *dataaggregator.Aggregator) *fiber.App {
	webApp := fiber.New()
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.RoutesRouter(group.Group("/routes"), aggregator)
	routes.StopsRouter(group.Group("/stops"), aggregator)
	routes.TimeRouter(group.Group("/time"), aggregator)

	return webApp
}
