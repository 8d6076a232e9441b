package routes

import (
	"errors"

	"github.com/actlive/actlive/pkg/upstreamerr"
	"github.com/gofiber/fiber/v2"
)

// respondUpstreamError maps the typed upstream failures onto protocol
// status codes: unreachable or slow upstreams are a 503, undecodable
// payloads a 500, bad caller input a 400.
func respondUpstreamError(c *fiber.Ctx, err error) error {
	var httpErr *upstreamerr.HTTPError
	var timeoutErr *upstreamerr.TimeoutError
	var parseErr *upstreamerr.ParseError
	var validationErr *upstreamerr.ValidationError

	switch {
	case errors.As(err, &httpErr), errors.As(err, &timeoutErr):
		c.SendStatus(fiber.StatusServiceUnavailable)
	case errors.As(err, &parseErr):
		c.SendStatus(fiber.StatusInternalServerError)
	case errors.As(err, &validationErr):
		c.SendStatus(fiber.StatusBadRequest)
	default:
		c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{
		"error": err.Error(),
	})
}
