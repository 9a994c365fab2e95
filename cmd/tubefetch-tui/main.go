// tubefetch TUI - terminal front end for fetching video info and downloading mp4 files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tubefetch/cmd/tubefetch-tui/internal/ui"
	"tubefetch/internal/app"
	"tubefetch/internal/config"
	"tubefetch/internal/observability"
	"tubefetch/pkg/logger"
)

const logFilePerm = 0o644

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logPath, err := filepath.Abs(cfg.App.LogFile)
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("log dir: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFilePerm)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	log, err := logger.New(&logger.Options{
		AddSource: cfg.App.LogSource,
		Level:     cfg.App.LogLevel,
		Output:    logFile,
	})
	if err != nil {
		log.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	fmt.Fprintf(os.Stderr, "checking dependencies, logs go to %s\n", logPath)

	a, err := app.New(ctx, log, cfg, observability.New())
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	tui := ui.NewApp(ctx, log, cfg, a.Video)

	go func() {
		<-ctx.Done()
		tui.Stop()
	}()

	return tui.Run()
}
