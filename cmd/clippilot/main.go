package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"ClipPilot/internal/app"
	"ClipPilot/internal/config"
	"ClipPilot/internal/logging"
)

func main() {
	loop := flag.Bool("loop", false, "run the repeating schedule with the control bots")
	setupLogin := flag.Bool("setup-login", false, "open a browser for the one-time platform login")
	genre := flag.String("genre", "", "genre for a single cycle (defaults to configuration)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	switch {
	case *setupLogin:
		err = application.SetupLogin(ctx)
	case *loop:
		err = application.Serve(ctx, true)
	case application.HasBots():
		// Remote-control mode: idle with the schedule stopped until the
		// operator starts it from the chat menu.
		err = application.Serve(ctx, false)
	default:
		err = application.RunOnce(ctx, *genre)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
