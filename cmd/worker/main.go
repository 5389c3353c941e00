package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/peak-importer/internal/gcsdocs"
	infraBQ "github.com/dvloznov/peak-importer/internal/infra/bigquery"
	"github.com/dvloznov/peak-importer/internal/jobs/inmemory"
	"github.com/dvloznov/peak-importer/internal/logger"
	"github.com/dvloznov/peak-importer/internal/worker"
)

func main() {
	_ = godotenv.Load()

	var (
		workers = flag.Int("workers", 5, "concurrent extraction workers")
		withAI  = flag.Bool("ai", os.Getenv("GEMINI_API_KEY") != "", "enable Gemini field enhancement and repair")
	)
	flag.Parse()

	log := logger.New()

	// In production, the in-memory queue would be replaced with Cloud Tasks
	// or Pub/Sub.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	log.Info().Int("workers", *workers).Bool("ai", *withAI).Msg("Starting worker service")

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	pipe, err := worker.BuildPipeline(ctx, *withAI)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build extraction pipeline")
	}

	processor := worker.NewProcessor(pipe, gcsdocs.NewGCSStore(), infraBQ.Sink{})

	if err := jobQueue.Start(ctx, processor.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
