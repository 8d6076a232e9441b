package routes

import (
	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/gofiber/fiber/v2"
)

func StopsRouter(router fiber.Router, aggregator *dataaggregator.Aggregator) {
	router.Get("/:code", getStop(aggregator))
	router.Get("/:code/predictions", getStopPredictions(aggregator))
}

func getStop(aggregator *dataaggregator.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")

		profile, err := aggregator.FetchBusStopProfile(c.Context(), code)
		if err != nil {
			return respondUpstreamError(c, err)
		}

		if profile == nil {
			c.SendStatus(fiber.StatusNotFound)
			return c.JSON(fiber.Map{
				"error": "Could not find a stop matching the stop code",
			})
		}

		return c.JSON(profile)
	}
}

func getStopPredictions(aggregator *dataaggregator.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")
		routeID := c.Query("route")
		outbound := c.Query("direction", "inbound") == "outbound"

		var err error
		var predictions any

		if c.Query("source") == "feed" {
			predictions, err = aggregator.FetchBusStopPredictionsFromFeed(c.Context(), routeID, code, outbound)
		} else {
			predictions, err = aggregator.FetchBusStopPredictions(c.Context(), routeID, code, outbound)
		}

		if err != nil {
			return respondUpstreamError(c, err)
		}

		return c.JSON(predictions)
	}
}
