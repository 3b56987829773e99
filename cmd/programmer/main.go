// cmd/programmer/main.go
package main

import (
	"context"
	"log"
	"os"

	"github.com/tamzrod/flash-programmer/internal/boot"
	"github.com/tamzrod/flash-programmer/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: programmer <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	config.Normalize(cfg)

	// --------------------
	// Assemble and run
	// --------------------

	app, err := boot.New(cfg)
	if err != nil {
		log.Fatalf("boot failed: %v", err)
	}
	defer app.Close()

	// Run owns the calling goroutine for the hardware core's loop and
	// returns only when the context ends.
	app.Run(context.Background())
}
