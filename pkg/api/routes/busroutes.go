package routes

import (
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/gofiber/fiber/v2"
)

func RoutesRouter(router fiber.Router, aggregator *dataaggregator.Aggregator) {
	router.Get("/:routeID/positions", getRoutePositions(aggregator))
	router.Get("/:routeID/alerts", getRouteAlerts(aggregator))
}

func getRoutePositions(aggregator *dataaggregator.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routeID := c.Params("routeID")

		var err error
		var positions any

		if c.Query("source") == "feed" {
			positions, err = aggregator.FetchBusPositionsFromFeed(c.Context(), routeID)
		} else {
			positions, err = aggregator.FetchBusPositions(c.Context(), routeID)
		}

		if err != nil {
			return respondUpstreamError(c, err)
		}

		return c.JSON(positions)
	}
}

func getRouteAlerts(aggregator *dataaggregator.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		routeID := c.Params("routeID")

		alerts, err := aggregator.FetchServiceAlerts(c.Context(), routeID)
		if err != nil {
			return respondUpstreamError(c, err)
		}

		return c.JSON(alerts)
	}
}
