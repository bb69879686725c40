package storage

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/librosapp/libreria/internal/domain"
)

// Event names a store notification channel.
type Event string

const (
	// EventDataUpdated fires synchronously after every write made through
	// this store instance.
	EventDataUpdated Event = "data_updated"
	// EventStorageChanged fires when the shared medium was changed by
	// another tab or by an external process.
	EventStorageChanged Event = "storage_changed"
)

// Listener receives the new record after a change.
type Listener func(domain.Record)

// Handle identifies a registered listener for later removal.
type Handle int

type listenerEntry struct {
	handle Handle
	fn     Listener
}

// registry holds per-event listener lists, invoked in registration order.
type registry struct {
	mu     sync.Mutex
	next   Handle
	lists  map[Event][]listenerEntry
	logger *slog.Logger
}

func newRegistry(logger *slog.Logger) *registry {
	return &registry{
		lists:  make(map[Event][]listenerEntry),
		logger: logger,
	}
}

// AddListener registers a callback for the given event and returns a handle
// for removal. Multiple callbacks per event are supported.
func (s *Store) AddListener(event Event, fn Listener) Handle {
	r := s.listeners
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.lists[event] = append(r.lists[event], listenerEntry{handle: h, fn: fn})
	return h
}

// RemoveListener unregisters a previously added callback.
func (s *Store) RemoveListener(event Event, h Handle) {
	r := s.listeners
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[event] = slices.DeleteFunc(r.lists[event], func(e listenerEntry) bool {
		return e.handle == h
	})
}

// notify invokes every listener for the event in registration order. Each
// listener gets its own copy of the record, and a panicking listener is
// logged without aborting its siblings or the triggering write.
func (r *registry) notify(event Event, rec domain.Record) {
	r.mu.Lock()
	entries := slices.Clone(r.lists[event])
	r.mu.Unlock()

	for _, e := range entries {
		r.invoke(event, e, rec.Clone())
	}
}

func (r *registry) invoke(event Event, e listenerEntry, rec domain.Record) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("store listener panicked",
				"event", string(event), "panic", p)
		}
	}()
	e.fn(rec)
}
