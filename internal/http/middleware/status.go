package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// statusOf returns the status the client will see. Errors returned down the
// chain are turned into responses by the app's ErrorHandler only after every
// middleware has returned, so the code is taken from the error when present.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// routePattern returns the matched route path (e.g. "/") or the raw path when
// nothing matched, so unmatched requests do not inherit a catch-all pattern.
func routePattern(c *fiber.Ctx, status int) string {
	if status == fiber.StatusNotFound {
		return c.Path()
	}
	if p := c.Route().Path; p != "" {
		return p
	}
	return c.Path()
}
