package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"niftybot/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		log.Printf("niftybot: %v", err)
		stop()
		os.Exit(1)
	}
}
