// Package main provides a tool to reset the store to its default catalog.
//
// Usage:
//
//	go run ./cmd/seed -data-path ~/.libreria
//	go run ./cmd/seed -storage-backend sqlite
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/librosapp/libreria/internal/config"
	"github.com/librosapp/libreria/internal/logger"
	"github.com/librosapp/libreria/internal/seed"
	"github.com/librosapp/libreria/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	backend, err := openBackend(cfg, logg)
	if err != nil {
		log.Fatalf("Failed to open storage backend: %v", err)
	}
	defer backend.Close()

	store, err := storage.Open(backend, storage.Options{
		Seed:   seed.InitialRecord(),
		Logger: logg.Logger,
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.Reset(); err != nil {
		log.Fatalf("Failed to reset store: %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Printf("Store reset to default catalog at %s\n", cfg.Storage.DataPath)
	fmt.Printf("  Books:      %d\n", stats.TotalBooks)
	fmt.Printf("  Users:      %d\n", stats.TotalUsers)
	fmt.Printf("  Categories: %d\n", len(stats.Categories))
	fmt.Printf("  Stock:      %d units\n", stats.TotalStock)
}

func openBackend(cfg *config.Config, logg *logger.Logger) (storage.Backend, error) {
	if cfg.Storage.Backend == config.BackendSQLite {
		return storage.OpenSQLite(filepath.Join(cfg.Storage.DataPath, "libreria.db"), logg.Logger)
	}
	return storage.OpenBadger(filepath.Join(cfg.Storage.DataPath, "db"), logg.Logger)
}
