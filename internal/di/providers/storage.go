package providers

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/samber/do/v2"

	"github.com/librosapp/libreria/internal/config"
	"github.com/librosapp/libreria/internal/logger"
	"github.com/librosapp/libreria/internal/seed"
	"github.com/librosapp/libreria/internal/storage"
	"github.com/librosapp/libreria/internal/sync"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
const shutdownTimeout = 30 * time.Second

// BackendHandle wraps the key-value medium with shutdown capability.
type BackendHandle struct {
	storage.Backend
}

// Shutdown implements do.Shutdownable.
func (h *BackendHandle) Shutdown() error {
	return h.Close()
}

// ProvideBackend provides the key-value medium selected by configuration.
func ProvideBackend(i do.Injector) (*BackendHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var backend storage.Backend
	var err error
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		backend, err = storage.OpenSQLite(filepath.Join(cfg.Storage.DataPath, "libreria.db"), log.Logger)
	default:
		backend, err = storage.OpenBadger(filepath.Join(cfg.Storage.DataPath, "db"), log.Logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage backend: %w", err)
	}

	log.Info("Storage backend ready", "backend", cfg.Storage.Backend)
	return &BackendHandle{Backend: backend}, nil
}

// BusHandle wraps the change bus with its context for lifecycle management.
type BusHandle struct {
	*sync.Bus
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BusHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Bus.Shutdown(ctx)
}

// ProvideBus provides the cross-tab change bus.
func ProvideBus(i do.Injector) (*BusHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	bus := sync.NewBus(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)

	log.Info("Change bus started")

	return &BusHandle{Bus: bus, cancel: cancel}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*storage.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the catalog store, seeded with default data on a
// fresh medium.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[*BackendHandle](i)
	bus := do.MustInvoke[*BusHandle](i)

	store, err := storage.Open(backend.Backend, storage.Options{
		Seed:   seed.InitialRecord(),
		Bus:    bus.Bus,
		Logger: log.Logger,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Store initialized", "tab", store.TabID())
	return &StoreHandle{Store: store}, nil
}

// MirrorHandle wraps the optional JSON mirror with its context.
// When no mirror path is configured the handle is inert.
type MirrorHandle struct {
	*sync.Mirror
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *MirrorHandle) Shutdown() error {
	if h.Mirror == nil {
		return nil
	}
	h.cancel()
	return h.Stop()
}

// ProvideMirror provides the JSON mirror file bridge when configured.
func ProvideMirror(i do.Injector) (*MirrorHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Storage.MirrorPath == "" {
		return &MirrorHandle{}, nil
	}

	store := do.MustInvoke[*StoreHandle](i)
	mirror, err := sync.NewMirror(store.Store, cfg.Storage.MirrorPath, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := mirror.Start(ctx); err != nil {
			log.Error("mirror stopped", "error", err)
		}
	}()

	log.Info("Mirror file enabled", "path", cfg.Storage.MirrorPath)
	return &MirrorHandle{Mirror: mirror, cancel: cancel}, nil
}
