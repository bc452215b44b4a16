// Package main is the entry point for the pgtyped CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/satishbabariya/pgtyped/cmd/pgtyped/commands"
	"github.com/satishbabariya/pgtyped/internal/ui"
)

func main() {
	if err := run(); err != nil {
		ui.Error(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return commands.NewRootCommand().ExecuteContext(ctx)
}
