package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend is the default key-value medium, backed by a Badger database.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("badger database opened", "path", path)
	}

	return &BadgerBackend{db: db}, nil
}

// View implements Backend.
func (b *BadgerBackend) View(fn func(tx Tx) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return fn(badgerTx{txn: txn})
	})
}

// Update implements Backend.
func (b *BadgerBackend) Update(fn func(tx Tx) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(badgerTx{txn: txn})
	})
}

// Close implements Backend.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

type badgerTx struct {
	txn *badger.Txn
}

func (t badgerTx) Get(key string) ([]byte, error) {
	item, err := t.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return item.ValueCopy(nil)
}

func (t badgerTx) Set(key string, value []byte) error {
	return t.txn.Set([]byte(key), value)
}

func (t badgerTx) Delete(key string) error {
	return t.txn.Delete([]byte(key))
}
