// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tubefetch/internal/app"
	"tubefetch/internal/config"
	httprouter "tubefetch/internal/infrastructure/delivery/http"
	"tubefetch/internal/observability"
	httpserver "tubefetch/pkg/http/server"
	"tubefetch/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: cfg.App.LogSource,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	a, err := app.New(ctx, log, cfg, metrics)
	if err != nil {
		log.ErrorContext(ctx, "app new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	// HTTP Server
	router := httprouter.New(log, cfg, a.Video, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "tubefetch started",
		slog.String("port", cfg.HTTP.Port),
		slog.String("downloader", cfg.Download.Downloader),
		slog.String("downloads_dir", cfg.Dir.Downloads))

	// Waiting for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-httpSrv.Notify():
		log.ErrorContext(ctx, "http server stopped", slog.Any("error", err))
	}

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "tubefetch shut down gracefully")
}
