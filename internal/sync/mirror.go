package sync

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	stdsync "sync"

	"github.com/fsnotify/fsnotify"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/storage"
)

// Mirror keeps a JSON copy of the store record on disk and watches it for
// edits made by other processes. A store write refreshes the file; an
// external edit is adopted back into the store and surfaced to listeners
// as a storage change.
type Mirror struct {
	store   *storage.Store
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu          stdsync.Mutex
	lastWritten []byte

	hData    storage.Handle
	hStorage storage.Handle
	wg       stdsync.WaitGroup
}

// NewMirror creates a mirror for the given file path. The parent directory
// must exist; the file itself is created on the first write.
func NewMirror(store *storage.Store, path string, logger *slog.Logger) (*Mirror, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the parent directory so atomic replace-by-rename edits are
	// still observed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch mirror directory: %w", err)
	}

	return &Mirror{
		store:   store,
		path:    filepath.Clean(path),
		logger:  logger,
		watcher: watcher,
	}, nil
}

// Start writes the current record to the mirror file, subscribes to store
// changes, and begins processing file events. It blocks until the context
// is canceled, so call it in a goroutine.
func (m *Mirror) Start(ctx context.Context) error {
	rec, err := m.store.All()
	if err != nil {
		return err
	}
	if err := m.writeFile(rec); err != nil {
		return err
	}

	m.hData = m.store.AddListener(storage.EventDataUpdated, m.onStoreChange)
	m.hStorage = m.store.AddListener(storage.EventStorageChanged, m.onStoreChange)

	m.wg.Add(1)
	go m.processEvents(ctx)

	m.logger.Info("mirror started", "path", m.path)

	<-ctx.Done()
	return nil
}

// Stop unsubscribes from the store and closes the watcher.
func (m *Mirror) Stop() error {
	m.store.RemoveListener(storage.EventDataUpdated, m.hData)
	m.store.RemoveListener(storage.EventStorageChanged, m.hStorage)
	err := m.watcher.Close()
	m.wg.Wait()
	return err
}

// onStoreChange refreshes the mirror file after any store change.
func (m *Mirror) onStoreChange(rec domain.Record) {
	if err := m.writeFile(rec); err != nil {
		m.logger.Error("failed to refresh mirror file", "error", err)
	}
}

// writeFile serializes the record and remembers the bytes so the resulting
// watcher event can be told apart from an external edit.
func (m *Mirror) writeFile(rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror record: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if bytes.Equal(data, m.lastWritten) {
		return nil
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write mirror file: %w", err)
	}
	m.lastWritten = data
	return nil
}

func (m *Mirror) processEvents(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(event)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("mirror watcher error", "error", err)
		}
	}
}

// handleEvent reacts to writes against the mirror file. Our own writes are
// filtered by byte comparison against the last serialized record.
func (m *Mirror) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != m.path {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		m.logger.Warn("failed to read mirror file", "error", err)
		return
	}

	m.mu.Lock()
	own := bytes.Equal(data, m.lastWritten)
	if !own {
		m.lastWritten = data
	}
	m.mu.Unlock()
	if own {
		return
	}

	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		m.logger.Warn("ignoring malformed mirror file", "error", err)
		return
	}

	m.logger.Info("adopting external change from mirror file", "version", rec.Version)
	if err := m.store.AdoptExternal(rec); err != nil {
		m.logger.Error("failed to adopt external change", "error", err)
	}
}
