package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"frontend/internal/http/middleware"
)

// ErrorHandler logs the failure at debug level and hands the response to
// fiber.DefaultErrorHandler, so status codes and bodies stay Fiber's own.
// The request line from middleware.Logger carries the error-level entry.
// Errors that are not *fiber.Error are replaced by fiber.ErrInternalServerError
// before writing, which keeps internal messages out of the response.
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			fe = fiber.ErrInternalServerError
		}

		log.Debug().Err(err).
			Str("request_id", middleware.RequestIDFromCtx(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", fe.Code).
			Msg("request_failed")

		return fiber.DefaultErrorHandler(c, fe)
	}
}
