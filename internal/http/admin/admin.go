package admin

import (
	"net"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"frontend/docs"
	"frontend/internal/http/handler"
	"frontend/internal/http/middleware"
)

// HealthPath answers 200 while the process is serving.
const HealthPath = "/healthz"

// Options configures the admin app.
type Options struct {
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
	// PublicPort is advertised in the Swagger document so "try it out"
	// requests reach the public listener instead of this one.
	PublicPort string
}

// New builds the operational app serving metrics, health and API docs.
// It runs on its own listener and never shares routes with the public app.
//
//	@title		Frontend
//	@version	1.0
//	@BasePath	/
func New(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler(opts.Logger),
	})

	app.Get(middleware.MetricsPath, adaptor.HTTPHandler(
		promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}),
	))

	app.Get(HealthPath, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// SwaggerInfo is package state read while the handler renders doc.json.
	var mu sync.Mutex
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get(fiber.HeaderXForwardedProto); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		mu.Lock()
		defer mu.Unlock()
		docs.SwaggerInfo.Host = publicHost(c.Hostname(), opts.PublicPort)
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	return app
}

// publicHost swaps the port of the admin Host header for the public one.
func publicHost(hostHeader, publicPort string) string {
	host := hostHeader
	if h, _, err := net.SplitHostPort(hostHeader); err == nil {
		host = h
	}
	if publicPort == "" {
		return host
	}
	return net.JoinHostPort(host, publicPort)
}
