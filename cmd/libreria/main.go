// Package main provides the entry point for the bookstore runtime.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/librosapp/libreria/internal/di"
	"github.com/librosapp/libreria/internal/di/providers"
	"github.com/librosapp/libreria/internal/logger"
	"github.com/librosapp/libreria/internal/storage"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	if store, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		printStats(log, store.Store)
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Goodbye")
}

func printStats(log *logger.Logger, store *storage.Store) {
	stats, err := store.Stats()
	if err != nil {
		log.Error("Failed to read store stats", "error", err)
		return
	}
	log.Info("Catalog ready",
		"books", stats.TotalBooks,
		"users", stats.TotalUsers,
		"categories", len(stats.Categories),
		"total_stock", stats.TotalStock,
		"version", stats.Version,
	)
}
