package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/durapage/durapage/cmd/root"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := root.NewCommand(ctx).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
