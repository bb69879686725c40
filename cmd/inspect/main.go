// Package main provides a read-only inspection tool for the store.
// It prints catalog statistics and dumps the full record as JSON.
//
// Usage:
//
//	go run ./cmd/inspect -data-path ~/.libreria > export.json
package main

import (
	"encoding/json/v2"
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

	logg := logger.Discard()

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

	stats, err := store.Stats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Fprintf(os.Stderr, "=== Store Inspection ===\n")
	fmt.Fprintf(os.Stderr, "Books:         %d\n", stats.TotalBooks)
	fmt.Fprintf(os.Stderr, "Users:         %d\n", stats.TotalUsers)
	fmt.Fprintf(os.Stderr, "Total stock:   %d units\n", stats.TotalStock)
	fmt.Fprintf(os.Stderr, "Version:       %d\n", stats.Version)
	fmt.Fprintf(os.Stderr, "Last modified: %s\n", stats.LastModified)
	for _, c := range stats.Categories {
		fmt.Fprintf(os.Stderr, "  category: %s\n", c)
	}

	rec, err := store.Export()
	if err != nil {
		log.Fatalf("Failed to export record: %v", err)
	}
	out, err := json.Marshal(rec)
	if err != nil {
		log.Fatalf("Failed to marshal record: %v", err)
	}
	fmt.Println(string(out))
}

func openBackend(cfg *config.Config, logg *logger.Logger) (storage.Backend, error) {
	if cfg.Storage.Backend == config.BackendSQLite {
		return storage.OpenSQLite(filepath.Join(cfg.Storage.DataPath, "libreria.db"), logg.Logger)
	}
	return storage.OpenBadger(filepath.Join(cfg.Storage.DataPath, "db"), logg.Logger)
}
