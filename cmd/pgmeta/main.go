// Command pgmeta describes and queries a PostgreSQL database for agents.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/pgmeta/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
