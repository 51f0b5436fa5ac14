package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ryanolee/serverless-offline-edge-lambda/internal/telemetry"
	"github.com/ryanolee/serverless-offline-edge-lambda/pkg/simulator"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("edge-simulator", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	configPath := os.Getenv("EDGE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	sim, err := simulator.New(
		simulator.WithFileConfig(configPath),
		simulator.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create simulator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sim.Start(ctx); err != nil {
		log.Fatalf("Failed to start simulator: %v", err)
	}

	logger.Info("simulator started", slog.String("config", configPath))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, stopping simulator")
	case err := <-sim.Err():
		if err != nil {
			logger.Error("server stopped", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := sim.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("simulator shutdown complete")
}
