package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/manager"
	"github.com/librosapp/libreria/internal/seed"
	"github.com/librosapp/libreria/internal/storage"
	"github.com/librosapp/libreria/internal/validation"
)

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// setupTwoTabs opens two stores over one shared backend, connected by a
// running bus, like two browser tabs of the same origin.
func setupTwoTabs(t *testing.T) (*storage.Store, *storage.Store) {
	t.Helper()

	backend, err := storage.OpenBadger(filepath.Join(t.TempDir(), "db"), discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	bus := NewBus(discard())
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)

	open := func() *storage.Store {
		store, err := storage.Open(backend, storage.Options{
			Seed:   seed.InitialRecord(),
			Bus:    bus,
			Logger: discard(),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	}
	return open(), open()
}

func newSynchronizer(t *testing.T, store *storage.Store) *Synchronizer {
	t.Helper()

	validate := validation.New()
	books := manager.NewBooks(store, validate, discard())
	users := manager.NewUsers(store, validate, discard())

	syncer := NewSynchronizer(store, books, users, discard())
	syncer.SetHookDelay(time.Millisecond)
	require.NoError(t, syncer.Start())
	t.Cleanup(syncer.Close)
	return syncer
}

func TestWriteInOneTabReachesTheOther(t *testing.T) {
	tab1, tab2 := setupTwoTabs(t)

	received := make(chan domain.Record, 1)
	tab2.AddListener(storage.EventStorageChanged, func(rec domain.Record) {
		received <- rec
	})

	_, err := tab1.AddBook(domain.Book{Title: "Cruce de Pestañas", Author: "Autora"})
	require.NoError(t, err)

	select {
	case rec := <-received:
		assert.Len(t, rec.Books, 9)
	case <-time.After(2 * time.Second):
		t.Fatal("tab2 never saw the change from tab1")
	}
}

func TestWriterDoesNotReceiveItsOwnStorageChange(t *testing.T) {
	tab1, tab2 := setupTwoTabs(t)

	var mu stdsync.Mutex
	var selfNotified bool
	tab1.AddListener(storage.EventStorageChanged, func(domain.Record) {
		mu.Lock()
		selfNotified = true
		mu.Unlock()
	})

	received := make(chan struct{}, 1)
	tab2.AddListener(storage.EventStorageChanged, func(domain.Record) {
		received <- struct{}{}
	})

	_, err := tab1.AddBook(domain.Book{Title: "Origen", Author: "Autora"})
	require.NoError(t, err)

	// Once the sibling got the event, the origin must still not have.
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("tab2 never saw the change")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, selfNotified)
}

func TestSynchronizerReloadsManagersOnSameTabWrite(t *testing.T) {
	tab1, _ := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab1)

	assert.Equal(t, 8, syncer.Books().Count())

	_, err := tab1.AddBook(domain.Book{Title: "Recarga", Author: "Autora"})
	require.NoError(t, err)

	assert.Equal(t, 9, syncer.Books().Count())
}

func TestSynchronizerReloadsManagersFromOtherTab(t *testing.T) {
	tab1, tab2 := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab2)

	_, err := tab1.AddBook(domain.Book{Title: "Desde Otra Pestaña", Author: "Autora"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return syncer.Books().Count() == 9
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSynchronizerRunsHooksAfterChange(t *testing.T) {
	tab1, tab2 := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab2)

	painted := make(chan domain.Record, 1)
	syncer.RegisterHook("header", func(rec domain.Record) {
		painted <- rec
	})

	_, err := tab1.AddBook(domain.Book{Title: "Repinta", Author: "Autora"})
	require.NoError(t, err)

	select {
	case rec := <-painted:
		assert.Len(t, rec.Books, 9)
	case <-time.After(2 * time.Second):
		t.Fatal("hook never ran")
	}
}

func TestSynchronizerHooksDoNotRunOnSameTabWrite(t *testing.T) {
	tab1, _ := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab1)

	painted := make(chan struct{}, 1)
	syncer.RegisterHook("header", func(domain.Record) {
		painted <- struct{}{}
	})

	_, err := tab1.AddBook(domain.Book{Title: "Silencio", Author: "Autora"})
	require.NoError(t, err)

	// Managers refresh synchronously, but the render hooks stay quiet:
	// the page that wrote already shows the change.
	assert.Equal(t, 9, syncer.Books().Count())
	select {
	case <-painted:
		t.Fatal("hook ran for a write made in this tab")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSynchronizerHooksRunInRegistrationOrder(t *testing.T) {
	tab1, _ := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab1)

	var mu stdsync.Mutex
	var order []string
	syncer.RegisterHook("header", func(domain.Record) {
		mu.Lock()
		order = append(order, "header")
		mu.Unlock()
	})
	syncer.RegisterHook("grid", func(domain.Record) {
		mu.Lock()
		order = append(order, "grid")
		mu.Unlock()
	})

	require.NoError(t, syncer.ForceSync())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"header", "grid"}, order)
}

func TestSynchronizerUnregisterHook(t *testing.T) {
	tab1, _ := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab1)

	var calls int
	syncer.RegisterHook("header", func(domain.Record) { calls++ })
	syncer.UnregisterHook("header")

	require.NoError(t, syncer.ForceSync())
	assert.Equal(t, 0, calls)
}

func TestSynchronizerPanickingHookIsIsolated(t *testing.T) {
	tab1, _ := setupTwoTabs(t)
	syncer := newSynchronizer(t, tab1)

	var survived bool
	syncer.RegisterHook("broken", func(domain.Record) { panic("boom") })
	syncer.RegisterHook("healthy", func(domain.Record) { survived = true })

	require.NoError(t, syncer.ForceSync())
	assert.True(t, survived)
}

func TestForceSyncPicksUpOutOfBandWrite(t *testing.T) {
	tab1, tab2 := setupTwoTabs(t)

	// tab2's synchronizer with hooks disabled until we force.
	syncer := newSynchronizer(t, tab2)
	syncer.Close()

	_, err := tab1.AddBook(domain.Book{Title: "Fuera de Banda", Author: "Autora"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		if err := syncer.ForceSync(); err != nil {
			return false
		}
		return syncer.Books().Count() == 9
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBusShutdownIsIdempotent(t *testing.T) {
	bus := NewBus(discard())
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	defer cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, bus.Shutdown(shutdownCtx))
	require.NoError(t, bus.Shutdown(shutdownCtx))

	// Publishing after shutdown is a quiet no-op.
	bus.Publish("tab-x", domain.Record{})
}

func TestBusShutdownDeliversOnlyRealRecords(t *testing.T) {
	bus := NewBus(discard())
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	defer cancel()

	var mu stdsync.Mutex
	var versions []int64
	bus.Attach("tab-b", func(rec domain.Record) {
		mu.Lock()
		versions = append(versions, rec.Version)
		mu.Unlock()
	})

	for v := int64(1); v <= 32; v++ {
		bus.Publish("tab-a", domain.Record{Version: v})
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, bus.Shutdown(shutdownCtx))

	// Closing the queue must never surface zero-value envelopes.
	mu.Lock()
	defer mu.Unlock()
	for _, v := range versions {
		assert.NotZero(t, v)
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	bus := NewBus(discard())
	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	defer cancel()

	got := make(chan domain.Record, 1)
	detach := bus.Attach("tab-b", func(rec domain.Record) { got <- rec })

	bus.Publish("tab-a", domain.Record{Version: 1})
	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("attached tab never got the event")
	}

	detach()
	bus.Publish("tab-a", domain.Record{Version: 2})
	select {
	case <-got:
		t.Fatal("detached tab still got an event")
	case <-time.After(100 * time.Millisecond):
	}
}
