package handler

import (
	"github.com/gofiber/fiber/v2"

	"frontend/internal/service"
)

// HomePath is the only path served by the public listener.
const HomePath = "/"

// RegisterRoutes attaches the public routes to app. Anything else is left
// to Fiber's router: 404 for unknown paths, 405 for other methods on HomePath.
func RegisterRoutes(app *fiber.App, pageSvc service.PageService) {
	app.Get(HomePath, Home(pageSvc))
}

// Home serves the greeting page.
//
//	@Summary	Greeting page
//	@Produce	html
//	@Success	200	{string}	string	"greeting page"
//	@Router		/ [get]
func Home(pageSvc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, err := pageSvc.Home(c.UserContext())
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, page.ContentType)
		return c.SendString(page.Body)
	}
}
