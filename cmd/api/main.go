package main

import (
	"log"

	"catalogsync/internal/api"
	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/database"
	"catalogsync/internal/importer"
	"catalogsync/internal/logger"
	"catalogsync/internal/queue"
	"catalogsync/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logg := logger.New(cfg.LogLevel)

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logg.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Catalog pipeline
	mapper := catalog.NewMapper(db.DB, cfg.DefaultCategoryID, logg)
	reconciler := catalog.NewReconciler(db.DB, logg)
	syncer := catalog.NewSyncer(db.DB, mapper, reconciler, logg)

	// Object store is optional; without credentials imports keep temporary
	// image URLs in place.
	var store importer.ObjectStore
	if s3, err := storage.NewS3Store(cfg, logg); err != nil {
		logg.Warn().Err(err).Msg("object storage disabled")
	} else {
		store = s3
	}

	enricher := importer.NewAIEnricher(cfg.OpenAIAPIKey, logg)
	imp := importer.New(db.DB, mapper, reconciler, store, enricher, cfg.StorageTempPrefix, logg)

	// Job queue
	publisher := queue.NewPublisher(db.DB, cfg.KafkaBrokers, cfg.SyncJobsTopic, logg)
	defer publisher.Close()

	// Initialize API server
	server := api.New(cfg, logg, db, syncer, imp, publisher)

	// Start server
	logg.Info().Str("port", cfg.APIPort).Msg("starting API server")
	if err := server.Start(); err != nil {
		logg.Fatal().Err(err).Msg("server stopped")
	}
}
