package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"catalogsync/internal/catalog"
	"catalogsync/internal/config"
	"catalogsync/internal/database"
	"catalogsync/internal/logger"
	"catalogsync/internal/worker"
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

	// Initialize worker
	w := worker.New(cfg, db.DB, syncer, logg)

	// Start worker
	logg.Info().Msg("starting worker")
	go w.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info().Msg("shutting down worker")
	w.Stop()
}
