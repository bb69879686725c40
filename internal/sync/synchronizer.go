package sync

import (
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/manager"
	"github.com/librosapp/libreria/internal/storage"
)

// DefaultHookDelay mirrors the short deferral the UI uses so hooks run
// after the data they render has settled.
const DefaultHookDelay = 100 * time.Millisecond

// Hook is a UI refresh callback, keyed by name so pages can replace or
// remove their own hooks without touching others.
type Hook func(rec domain.Record)

type hookEntry struct {
	name string
	fn   Hook
}

// Synchronizer keeps one tab's managers and UI hooks aligned with the
// store. Same-tab writes only refresh the managers; changes arriving
// from other tabs also run the registered hooks after a short deferral,
// since the page that made the write has already rendered it.
type Synchronizer struct {
	store  *storage.Store
	books  *manager.Books
	users  *manager.Users
	logger *slog.Logger

	hookDelay time.Duration

	mu       stdsync.Mutex
	hooks    []hookEntry
	timer    *time.Timer
	hData    storage.Handle
	hStorage storage.Handle
	started  bool
}

// NewSynchronizer wires a synchronizer to a store and its managers.
// Call Start to begin listening.
func NewSynchronizer(store *storage.Store, books *manager.Books, users *manager.Users, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		store:     store,
		books:     books,
		users:     users,
		logger:    logger,
		hookDelay: DefaultHookDelay,
	}
}

// SetHookDelay overrides the deferral before hooks run. Useful in tests.
func (s *Synchronizer) SetHookDelay(d time.Duration) {
	s.mu.Lock()
	s.hookDelay = d
	s.mu.Unlock()
}

// Start loads current data into the managers and registers the store
// listeners. Calling Start twice is a no-op.
func (s *Synchronizer) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	rec, err := s.store.All()
	if err != nil {
		return err
	}
	s.apply(rec)

	hData := s.store.AddListener(storage.EventDataUpdated, s.onDataUpdated)
	hStorage := s.store.AddListener(storage.EventStorageChanged, s.onStorageChanged)

	s.mu.Lock()
	s.hData = hData
	s.hStorage = hStorage
	s.mu.Unlock()

	s.logger.Debug("synchronizer started", "tab", s.store.TabID())
	return nil
}

// Close unregisters the store listeners and cancels any pending hook run.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	hData, hStorage := s.hData, s.hStorage
	s.started = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.store.RemoveListener(storage.EventDataUpdated, hData)
	s.store.RemoveListener(storage.EventStorageChanged, hStorage)
}

// RegisterHook adds or replaces a named UI hook. Hooks run in registration
// order after changes from other tabs, deferred by the hook delay.
func (s *Synchronizer) RegisterHook(name string, fn Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.hooks {
		if s.hooks[i].name == name {
			s.hooks[i].fn = fn
			return
		}
	}
	s.hooks = append(s.hooks, hookEntry{name: name, fn: fn})
}

// UnregisterHook removes the named hook. Unknown names are ignored.
func (s *Synchronizer) UnregisterHook(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.hooks {
		if s.hooks[i].name == name {
			s.hooks = append(s.hooks[:i], s.hooks[i+1:]...)
			return
		}
	}
}

// ForceSync re-reads the store, reloads the managers, and runs the hooks
// immediately instead of waiting for a change event.
func (s *Synchronizer) ForceSync() error {
	rec, err := s.store.All()
	if err != nil {
		return err
	}
	s.apply(rec)
	s.runHooks(rec)
	s.logger.Debug("forced sync", "version", rec.Version)
	return nil
}

// Books returns the book manager this synchronizer refreshes.
func (s *Synchronizer) Books() *manager.Books { return s.books }

// Users returns the user manager this synchronizer refreshes.
func (s *Synchronizer) Users() *manager.Users { return s.users }

// onDataUpdated handles a write made in this tab. The page that wrote
// already reflects the change, so only the managers refresh.
func (s *Synchronizer) onDataUpdated(rec domain.Record) {
	s.apply(rec)
}

func (s *Synchronizer) onStorageChanged(rec domain.Record) {
	s.logger.Debug("applying change from another tab", "version", rec.Version)
	s.apply(rec)
	s.scheduleHooks(rec)
}

// apply pushes the record into both managers.
func (s *Synchronizer) apply(rec domain.Record) {
	s.books.LoadData(rec.Books)
	s.users.LoadData(rec.Users)
}

// scheduleHooks arms a deferred hook run, coalescing with any pending one
// so rapid successive changes repaint once.
func (s *Synchronizer) scheduleHooks(rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.hookDelay, func() {
		s.runHooks(rec)
	})
}

// runHooks invokes every hook in registration order, isolating panics so
// one broken page callback cannot starve the rest.
func (s *Synchronizer) runHooks(rec domain.Record) {
	s.mu.Lock()
	hooks := make([]hookEntry, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.Unlock()

	for _, h := range hooks {
		s.invokeHook(h, rec.Clone())
	}
}

func (s *Synchronizer) invokeHook(h hookEntry, rec domain.Record) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("sync hook panicked", "hook", h.name, "panic", p)
		}
	}()
	h.fn(rec)
}
