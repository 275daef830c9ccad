// Package main is the entry point for the pkgcheck CLI application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/odpch/pkgcheck/cmd"
)

func main() {
	// Create a context that is cancelled on SIGINT or SIGTERM.
	// This lets a running audit or report service shut down gracefully.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
