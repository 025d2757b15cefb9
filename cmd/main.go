package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/songdl/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{
		ConfigPath: "config.toml",
		Logger:     logger,
		Input:      os.Stdin,
	})

	app := &cli.Command{
		Name:     "songdl",
		Usage:    "Resolve track lists to YouTube audio and download them as tagged files",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		logger.Fatalf("application error: %v", err)
	}
}
