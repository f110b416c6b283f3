package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/reckless-spender/internal/api/handlers"
	"github.com/dvloznov/reckless-spender/internal/archive"
	"github.com/dvloznov/reckless-spender/internal/config"
	"github.com/dvloznov/reckless-spender/internal/infra"
	"github.com/dvloznov/reckless-spender/internal/jobs"
	"github.com/dvloznov/reckless-spender/internal/jobs/inmemory"
	"github.com/dvloznov/reckless-spender/internal/logger"
	"github.com/dvloznov/reckless-spender/internal/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_FILE"), "Path to a YAML config file (or set CONFIG_FILE env)")
		port       = flag.String("port", "", "HTTP server port (overrides config and PORT env)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("", logger.FormatConsole)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	st, err := infra.OpenStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer st.Close()

	var (
		arch    archive.Archive
		fetcher jobs.Fetcher
	)
	if cfg.Archive.Bucket != "" {
		gcs, err := archive.NewGCSArchive(ctx, cfg.Archive.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create statement archive")
		}
		defer gcs.Close()
		arch, fetcher = gcs, gcs
	} else {
		log.Warn().Msg("No GCS bucket configured - uploaded statements will not be archived")
	}

	importer := pipeline.NewImporter(st, st, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting import worker")
	if err := jobQueue.Start(workerCtx, jobs.NewImportHandler(importer, fetcher)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start import worker")
	}

	router := handlers.NewRouter(handlers.Deps{
		Store:     st,
		Importer:  importer,
		Archive:   arch,
		Publisher: jobQueue,
		JobStore:  jobStore,
		Log:       log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handlers.Wrap(router, log, cfg.Server.CORSAllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("backend", cfg.Store.Backend).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop the queue first so the running import can finish.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
