package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// SQLiteBackend is an alternative key-value medium backed by a single-table
// SQLite database. Useful where the Badger directory layout is unwanted
// (one inspectable file instead of an LSM tree).
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Serialize access; the kv table is tiny and contention-free.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	if logger != nil {
		logger.Info("sqlite database opened", "path", path)
	}

	return &SQLiteBackend{db: db}, nil
}

// View implements Backend.
func (b *SQLiteBackend) View(fn func(tx Tx) error) error {
	return b.run(fn)
}

// Update implements Backend.
func (b *SQLiteBackend) Update(fn func(tx Tx) error) error {
	return b.run(fn)
}

func (b *SQLiteBackend) run(fn func(tx Tx) error) error {
	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(sqliteTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t sqliteTx) Get(key string) ([]byte, error) {
	var value []byte
	err := t.tx.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

func (t sqliteTx) Set(key string, value []byte) error {
	_, err := t.tx.Exec(`INSERT INTO kv (k, v) VALUES (?, ?)
		ON CONFLICT(k) DO UPDATE SET v = excluded.v`, key, value)
	return err
}

func (t sqliteTx) Delete(key string) error {
	_, err := t.tx.Exec(`DELETE FROM kv WHERE k = ?`, key)
	return err
}
