// Package main provides the entry point for the hawkalert CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/mr-karan/hawkalert/cmd/hawkalert/commands"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := commands.New(version, commit, date)
	if err := app.Run(ctx, os.Args); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
