package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dvloznov/reckless-spender/internal/config"
	infraBQ "github.com/dvloznov/reckless-spender/internal/infra/bigquery"
	"github.com/dvloznov/reckless-spender/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_FILE"), "Path to a YAML config file (or set CONFIG_FILE env)")
		appliedBy  = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	)
	flag.Parse()

	log := logger.New("", logger.FormatConsole)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Store.Backend != config.BackendBigQuery {
		log.Fatal().Str("backend", cfg.Store.Backend).Msg("Migrations only apply to the bigquery backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := infraBQ.NewStore(ctx, cfg.Store.BigQuery.Project, cfg.Store.BigQuery.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery store")
	}
	defer st.Close()

	log.Info().
		Str("project", cfg.Store.BigQuery.Project).
		Str("dataset", cfg.Store.BigQuery.Dataset).
		Msg("Connected to BigQuery")

	applied, err := st.Migrate(ctx, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	if len(applied) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}
	log.Info().Int("applied", len(applied)).Msg("Migrations applied")
}
