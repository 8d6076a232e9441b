package routes

import (
	"time"

	"github.com/actlive/actlive/pkg/dataaggregator"
	"github.com/gofiber/fiber/v2"
)

func TimeRouter(router fiber.Router, aggregator *dataaggregator.Aggregator) {
	router.Get("/", getSystemTime(aggregator))
}

func getSystemTime(aggregator *dataaggregator.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		systemTime := aggregator.FetchSystemTime(c.Context())

		return c.JSON(fiber.Map{
			"time": systemTime.UTC().Format(time.RFC3339),
		})
	}
}
