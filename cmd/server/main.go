// Package main runs the storefront API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nexcart/storefront/internal/app/runtime"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file (overrides STOREFRONT_CONFIG)")
	flag.Parse()

	_ = godotenv.Load() // allow .env for local runs

	if *configPath != "" {
		os.Setenv("STOREFRONT_CONFIG", *configPath)
	}

	application, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("failed to initialise application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("server failed: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
}
