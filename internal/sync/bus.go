// Package sync keeps every open tab aligned with the shared storage
// medium. The Bus fans writes out to sibling tabs, the Synchronizer
// refreshes a tab's managers and UI hooks, and the Mirror bridges to
// external processes through a watched JSON file.
package sync

import (
	"context"
	"log/slog"
	stdsync "sync"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/storage"
)

// envelope carries a written record together with the tab that wrote it.
type envelope struct {
	origin string
	rec    domain.Record
}

// tab is one attached store instance with its own delivery queue.
type tab struct {
	origin   string
	events   chan domain.Record
	done     chan struct{}
	stopOnce stdsync.Once
}

func (t *tab) stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

// Bus distributes change events between store instances sharing one
// backing medium. A write published with an origin reaches every attached
// tab except the origin itself.
type Bus struct {
	mu     stdsync.RWMutex
	tabs   map[string]*tab
	events chan envelope
	logger *slog.Logger
	wg     stdsync.WaitGroup

	// Shutdown state - protected by shutdownMu
	shutdownMu stdsync.RWMutex
	shutdown   bool
}

var _ storage.ChangeBus = (*Bus)(nil)

// NewBus creates a change bus. Start must be called before events flow.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		tabs:   make(map[string]*tab),
		events: make(chan envelope, 256),
		logger: logger,
	}
}

// Start begins the fan-out loop. It blocks until the context is canceled,
// so call it in a goroutine.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Debug("change bus starting")

	for {
		select {
		case env, ok := <-b.events:
			if !ok {
				// Shutdown closed the queue; its drain goroutine
				// finishes delivery and stops the tabs.
				b.logger.Debug("change bus queue closed")
				return
			}
			b.broadcast(env)
		case <-ctx.Done():
			b.logger.Debug("change bus stopping")
			b.stopAllTabs()
			return
		}
	}
}

// Shutdown stops accepting events, drains the queue, and waits for the
// fan-out loop to exit or the context to expire.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.shutdownMu.Lock()
	if b.shutdown {
		b.shutdownMu.Unlock()
		return nil
	}
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for env := range b.events {
			b.broadcast(env)
		}
		b.stopAllTabs()
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Debug("change bus shutdown complete")
	case <-ctx.Done():
		b.logger.Warn("change bus drain timeout, some events may be lost")
	}
	return nil
}

// Publish implements storage.ChangeBus. Events are queued without blocking
// the writer; when the queue is full the event is dropped with a warning.
func (b *Bus) Publish(origin string, rec domain.Record) {
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()
	if b.shutdown {
		return
	}

	select {
	case b.events <- envelope{origin: origin, rec: rec}:
	default:
		b.logger.Warn("change bus queue full, dropping event",
			"origin", origin, "version", rec.Version)
	}
}

// Attach implements storage.ChangeBus. The delivery function runs on a
// dedicated goroutine per tab so a slow consumer never stalls the others.
func (b *Bus) Attach(origin string, fn func(domain.Record)) func() {
	t := &tab{
		origin: origin,
		events: make(chan domain.Record, 16),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.tabs[origin] = t
	b.mu.Unlock()

	b.wg.Add(1)
	go b.deliver(t, fn)

	b.logger.Debug("tab attached", "origin", origin)

	return func() {
		b.mu.Lock()
		delete(b.tabs, origin)
		b.mu.Unlock()
		t.stop()
	}
}

// deliver forwards queued records to one tab until it detaches.
func (b *Bus) deliver(t *tab, fn func(domain.Record)) {
	defer b.wg.Done()
	for {
		select {
		case rec := <-t.events:
			fn(rec)
		case <-t.done:
			return
		}
	}
}

// broadcast queues the record for every tab except its origin.
func (b *Bus) broadcast(env envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for origin, t := range b.tabs {
		if origin == env.origin {
			continue
		}
		select {
		case t.events <- env.rec.Clone():
		case <-t.done:
		default:
			b.logger.Warn("tab queue full, dropping event",
				"origin", origin, "version", env.rec.Version)
		}
	}
}

func (b *Bus) stopAllTabs() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for origin, t := range b.tabs {
		t.stop()
		delete(b.tabs, origin)
	}
}
