package main

import (
	"context"
	"log"
	"os"

	"ticketdesk/cmd/ticketdesk/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("ticketdesk: %v", err)
	}
}

func run() error {
	a, err := app.New()
	if err != nil {
		return err
	}

	ctx, cancel := app.WithSignal(context.Background())
	defer cancel()

	return a.Run(ctx, os.Args[1:])
}
