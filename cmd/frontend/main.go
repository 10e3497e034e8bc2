package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"frontend/internal/config"
	"frontend/internal/logger"
	"frontend/internal/otel"
	"frontend/internal/server"
	"frontend/internal/service"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present).
	// Defaults serve on 0.0.0.0:80 with the admin listener and tracing off.
	cfg := config.Load()

	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error().Err(err).Msg("tracing_shutdown_failed")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := server.New(cfg, log, server.Deps{
		Pages:    service.NewPageService(),
		Registry: reg,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
