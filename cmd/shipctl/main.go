package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/echoship/shipctl/internal/cli"
	"github.com/echoship/shipctl/internal/logging"
)

// main is the entry point for the shipctl CLI binary.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(ctx, os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(cli.ExitCode(err))
	}
}
