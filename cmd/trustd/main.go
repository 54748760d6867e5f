package main

import (
	"context"
	"log"

	"github.com/quorumsec/trustd/internal/trust/app"
)

func main() {
	cfg := app.LoadConfig()

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
