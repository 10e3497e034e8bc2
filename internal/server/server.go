package server

import (
	"context"
	"fmt"
	"net"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"frontend/internal/config"
	"frontend/internal/http/admin"
	"frontend/internal/http/handler"
	"frontend/internal/http/middleware"
	"frontend/internal/service"
)

// Deps are the collaborators both apps are built from.
type Deps struct {
	Pages service.PageService
	// Registry receives the request collectors and backs /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server owns the public app and, when configured, the admin app.
type Server struct {
	cfg    *config.AppConfig
	log    zerolog.Logger
	public *fiber.App
	admin  *fiber.App
}

// New wires middleware and routes. The public app only ever serves "/".
func New(cfg *config.AppConfig, log zerolog.Logger, deps Deps) (*Server, error) {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	public := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler(log),
	})
	public.Use(middleware.RequestID())
	if cfg.Tracing.Enabled() {
		public.Use(otelfiber.Middleware())
	}
	public.Use(middleware.Logger(log))
	public.Use(prom.Handler())
	// Innermost, so the request log and metrics see a panic as a 500.
	public.Use(recover.New())
	handler.RegisterRoutes(public, deps.Pages)

	s := &Server{cfg: cfg, log: log, public: public}
	if cfg.Admin.Addr != "" {
		s.admin = admin.New(admin.Options{
			Gatherer:   reg,
			Logger:     log,
			PublicPort: cfg.Port,
		})
	}
	return s, nil
}

// Run binds the configured addresses and serves until ctx is done.
// Bind failures (address in use, permission denied) are returned before
// anything is served.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr()
	publicLn, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	var adminLn net.Listener
	if s.admin != nil {
		adminLn, err = net.Listen("tcp", s.cfg.Admin.Addr)
		if err != nil {
			_ = publicLn.Close()
			return fmt.Errorf("listen admin %s: %w", s.cfg.Admin.Addr, err)
		}
	}

	return s.Serve(ctx, publicLn, adminLn)
}

// Serve runs the apps on already bound listeners. adminLn is ignored when
// the admin app is disabled. When ctx is done or one app fails, every app
// is shut down within the configured timeout. A ctx-driven stop returns nil.
func (s *Server) Serve(ctx context.Context, publicLn, adminLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	type listener struct {
		name string
		app  *fiber.App
		ln   net.Listener
	}
	running := []listener{{name: "public", app: s.public, ln: publicLn}}
	if s.admin != nil && adminLn != nil {
		running = append(running, listener{name: "admin", app: s.admin, ln: adminLn})
	}

	for _, l := range running {
		l := l
		g.Go(func() error {
			s.log.Info().Str("listener", l.name).Str("addr", l.ln.Addr().String()).Msg("server_started")
			err := l.app.Listener(l.ln)
			if gctx.Err() != nil {
				// Errors after shutdown began come from closing the listener.
				return nil
			}
			if err == nil {
				err = fmt.Errorf("%s listener stopped unexpectedly", l.name)
			}
			return fmt.Errorf("serve %s: %w", l.name, err)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Dur("timeout", s.cfg.ShutdownTimeout()).Msg("shutting_down")
		for _, l := range running {
			if err := l.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout()); err != nil {
				s.log.Error().Err(err).Str("listener", l.name).Msg("shutdown_failed")
			}
			// Shutdown only closes listeners fasthttp has started serving on.
			_ = l.ln.Close()
		}
		return nil
	})

	err := g.Wait()
	s.log.Info().Msg("server_stopped")
	return err
}
