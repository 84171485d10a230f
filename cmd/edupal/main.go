// Package main is the edupal entrypoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/subham2006/mentora/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
