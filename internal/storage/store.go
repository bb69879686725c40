package storage

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/id"
)

// recordKey is the single key holding the serialized store record.
const recordKey = "libros_pequenos_db"

// ChangeBus connects tabs that share the same backing medium. A write in one
// tab is published with that tab's origin; every other attached tab receives
// it asynchronously as a storage change, the way the browser's storage event
// reaches other tabs of the same origin.
type ChangeBus interface {
	// Publish announces a new record written by the tab named origin.
	Publish(origin string, rec domain.Record)
	// Attach registers a delivery function for a tab. Events originating
	// from the same tab are not delivered back to it. The returned
	// function detaches the tab.
	Attach(origin string, fn func(domain.Record)) (detach func())
}

// NoopBus is a ChangeBus that drops everything. Used by single-tab tools
// and tests.
type NoopBus struct{}

// Publish implements ChangeBus as a no-op.
func (NoopBus) Publish(string, domain.Record) {}

// Attach implements ChangeBus as a no-op.
func (NoopBus) Attach(string, func(domain.Record)) func() { return func() {} }

// Options configures a Store.
type Options struct {
	// Seed is the record written on first access to an empty medium.
	Seed domain.Record
	// Bus distributes cross-tab change events. Defaults to NoopBus.
	Bus ChangeBus
	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Store is the sole authority for durable book and user data. One Store
// instance represents one tab attached to the shared medium.
type Store struct {
	backend Backend
	logger  *slog.Logger
	bus     ChangeBus
	tabID   string
	seed    domain.Record
	detach  func()

	// writeMu serializes read-modify-write cycles from this tab so that
	// identifier assignment never reuses a stale snapshot.
	writeMu sync.Mutex

	listeners *registry
}

// Open attaches a Store to the backing medium, initializing the record from
// the seed when the medium is empty.
func Open(backend Backend, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bus := opts.Bus
	if bus == nil {
		bus = NoopBus{}
	}

	s := &Store{
		backend:   backend,
		logger:    logger,
		bus:       bus,
		tabID:     id.MustGenerate("tab"),
		seed:      opts.Seed.Clone(),
		listeners: newRegistry(logger),
	}

	initialized, err := s.initialize()
	if err != nil {
		return nil, err
	}
	if initialized {
		logger.Info("store initialized with default data",
			"books", len(s.seed.Books), "users", len(s.seed.Users))
	} else {
		logger.Debug("existing store record loaded")
	}

	s.detach = bus.Attach(s.tabID, s.handleStorageChange)
	return s, nil
}

// Close detaches the store from the change bus. The shared backend stays
// open; it is owned by whoever created it.
func (s *Store) Close() error {
	s.detach()
	return nil
}

// TabID identifies this store instance on the change bus.
func (s *Store) TabID() string {
	return s.tabID
}

// initialize writes the seed record if the medium holds none yet.
// Returns true when the seed was written.
func (s *Store) initialize() (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var wrote bool
	err := s.backend.Update(func(tx Tx) error {
		if _, err := tx.Get(recordKey); err == nil {
			return nil
		} else if !errors.Is(err, ErrKeyNotFound) {
			return err
		}

		rec := s.seed.Clone()
		rec.Stamp()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal seed record: %w", err)
		}
		wrote = true
		return tx.Set(recordKey, data)
	})
	return wrote, err
}

// read loads the current record. A missing record triggers re-initialization
// from the seed instead of failing.
func (s *Store) read() (domain.Record, error) {
	var rec domain.Record
	var missing bool
	err := s.backend.View(func(tx Tx) error {
		data, err := tx.Get(recordKey)
		if errors.Is(err, ErrKeyNotFound) {
			missing = true
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to read store record: %w", err)
	}
	if missing {
		if _, err := s.initialize(); err != nil {
			return domain.Record{}, err
		}
		return s.read()
	}
	return rec, nil
}

// mutate runs fn on the current record inside a single write transaction,
// stamps and persists the result, then synchronously notifies this tab's
// data_updated listeners and publishes the change to other tabs.
func (s *Store) mutate(fn func(rec *domain.Record) error) (domain.Record, error) {
	s.writeMu.Lock()
	var rec domain.Record
	err := s.backend.Update(func(tx Tx) error {
		data, err := tx.Get(recordKey)
		switch {
		case errors.Is(err, ErrKeyNotFound):
			rec = s.seed.Clone()
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal store record: %w", err)
			}
		}

		if err := fn(&rec); err != nil {
			return err
		}

		rec.Stamp()
		out, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal store record: %w", err)
		}
		return tx.Set(recordKey, out)
	})
	s.writeMu.Unlock()

	if err != nil {
		return domain.Record{}, err
	}

	s.listeners.notify(EventDataUpdated, rec)
	s.bus.Publish(s.tabID, rec)
	return rec, nil
}

// handleStorageChange delivers a record written by another tab.
func (s *Store) handleStorageChange(rec domain.Record) {
	s.logger.Debug("storage changed in another tab", "version", rec.Version)
	s.listeners.notify(EventStorageChanged, rec)
}

// All returns the current record.
func (s *Store) All() (domain.Record, error) {
	return s.read()
}

// Books returns the current book sequence.
func (s *Store) Books() ([]domain.Book, error) {
	rec, err := s.read()
	if err != nil {
		return nil, err
	}
	return rec.Books, nil
}

// Users returns the current user sequence.
func (s *Store) Users() ([]domain.User, error) {
	rec, err := s.read()
	if err != nil {
		return nil, err
	}
	return rec.Users, nil
}

// SaveBooks replaces the record's book sequence.
func (s *Store) SaveBooks(books []domain.Book) error {
	rec, err := s.mutate(func(rec *domain.Record) error {
		rec.Books = slices.Clone(books)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("books saved", "count", len(rec.Books), "version", rec.Version)
	return nil
}

// SaveUsers replaces the record's user sequence.
func (s *Store) SaveUsers(users []domain.User) error {
	rec, err := s.mutate(func(rec *domain.Record) error {
		rec.Users = slices.Clone(users)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("users saved", "count", len(rec.Users), "version", rec.Version)
	return nil
}

// MutateBooks runs fn on a copy of the current book sequence inside the
// write transaction and persists the sequence fn returns. Collection-level
// checks (uniqueness, id assignment) made inside fn always see the committed
// state, so overlapping callers can never clobber each other's writes.
func (s *Store) MutateBooks(fn func(books []domain.Book) ([]domain.Book, error)) ([]domain.Book, error) {
	rec, err := s.mutate(func(rec *domain.Record) error {
		next, err := fn(slices.Clone(rec.Books))
		if err != nil {
			return err
		}
		rec.Books = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Books, nil
}

// MutateUsers is MutateBooks for the user sequence.
func (s *Store) MutateUsers(fn func(users []domain.User) ([]domain.User, error)) ([]domain.User, error) {
	rec, err := s.mutate(func(rec *domain.Record) error {
		next, err := fn(slices.Clone(rec.Users))
		if err != nil {
			return err
		}
		rec.Users = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec.Users, nil
}

// SaveBooksAt replaces the book sequence only if the record still has the
// expected version; otherwise it fails with Conflict. This closes the
// lost-update window for callers that read, computed, and write back.
func (s *Store) SaveBooksAt(books []domain.Book, expectedVersion int64) error {
	_, err := s.mutate(func(rec *domain.Record) error {
		if rec.Version != expectedVersion {
			return errors.Conflictf("store record changed (version %d, expected %d)",
				rec.Version, expectedVersion)
		}
		rec.Books = slices.Clone(books)
		return nil
	})
	return err
}

// SaveUsersAt is SaveBooksAt for the user sequence.
func (s *Store) SaveUsersAt(users []domain.User, expectedVersion int64) error {
	_, err := s.mutate(func(rec *domain.Record) error {
		if rec.Version != expectedVersion {
			return errors.Conflictf("store record changed (version %d, expected %d)",
				rec.Version, expectedVersion)
		}
		rec.Users = slices.Clone(users)
		return nil
	})
	return err
}

// AddBook appends a book, assigning it max(existing ids)+1. The identifier
// is derived inside the write transaction, so rapid additions can never
// share a snapshot and collide.
func (s *Store) AddBook(book domain.Book) (domain.Book, error) {
	_, err := s.mutate(func(rec *domain.Record) error {
		book.ID = domain.NextBookID(rec.Books)
		rec.Books = append(rec.Books, book)
		return nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	s.logger.Debug("book added", "id", book.ID, "title", book.Title)
	return book, nil
}

// AddUser appends a user, assigning it max(existing ids)+1. Fails with
// Duplicate when the email is already registered.
func (s *Store) AddUser(user domain.User) (domain.User, error) {
	user.Email = domain.NormalizeEmail(user.Email)
	_, err := s.mutate(func(rec *domain.Record) error {
		for i := range rec.Users {
			if domain.NormalizeEmail(rec.Users[i].Email) == user.Email {
				return errors.Duplicate("a user with this email already exists")
			}
		}
		user.ID = domain.NextUserID(rec.Users)
		rec.Users = append(rec.Users, user)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Debug("user added", "id", user.ID, "email", user.Email)
	return user, nil
}

// UpdateBook shallow-merges patch fields over the book with the given id.
func (s *Store) UpdateBook(bookID int64, patch domain.BookPatch) (domain.Book, error) {
	var updated domain.Book
	_, err := s.mutate(func(rec *domain.Record) error {
		i := rec.FindBook(bookID)
		if i < 0 {
			return errors.NotFound("book not found")
		}
		patch.Apply(&rec.Books[i])
		updated = rec.Books[i]
		return nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	return updated, nil
}

// UpdateUser shallow-merges patch fields over the user with the given id.
// The primary administrator's role can never be changed.
func (s *Store) UpdateUser(userID int64, patch domain.UserPatch) (domain.User, error) {
	var updated domain.User
	_, err := s.mutate(func(rec *domain.Record) error {
		i := rec.FindUser(userID)
		if i < 0 {
			return errors.NotFound("user not found")
		}
		if rec.Users[i].IsPrimaryAdmin() && patch.ChangesRole(&rec.Users[i]) {
			return errors.Forbidden("cannot change the primary administrator's role")
		}
		patch.Apply(&rec.Users[i])
		updated = rec.Users[i]
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// DeleteBook removes the book with the given id.
func (s *Store) DeleteBook(bookID int64) (domain.Book, error) {
	var removed domain.Book
	_, err := s.mutate(func(rec *domain.Record) error {
		i := rec.FindBook(bookID)
		if i < 0 {
			return errors.NotFound("book not found")
		}
		removed = rec.Books[i]
		rec.Books = slices.Delete(rec.Books, i, i+1)
		return nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	s.logger.Debug("book deleted", "id", bookID)
	return removed, nil
}

// DeleteUser removes the user with the given id. The primary administrator
// can never be deleted.
func (s *Store) DeleteUser(userID int64) (domain.User, error) {
	var removed domain.User
	_, err := s.mutate(func(rec *domain.Record) error {
		i := rec.FindUser(userID)
		if i < 0 {
			return errors.NotFound("user not found")
		}
		if rec.Users[i].IsPrimaryAdmin() {
			return errors.Forbidden("cannot delete the primary administrator")
		}
		removed = rec.Users[i]
		rec.Users = slices.Delete(rec.Users, i, i+1)
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Debug("user deleted", "id", userID)
	return removed, nil
}

// Export returns the full record for backup or debugging.
func (s *Store) Export() (domain.Record, error) {
	return s.read()
}

// Import replaces the record's data wholesale, stamping a new version.
func (s *Store) Import(in domain.Record) error {
	_, err := s.mutate(func(rec *domain.Record) error {
		rec.Books = slices.Clone(in.Books)
		rec.Users = slices.Clone(in.Users)
		return nil
	})
	return err
}

// AdoptExternal persists a record written outside this process verbatim,
// keeping its version (last write wins), and surfaces it as a storage
// change to this tab's listeners and to other tabs.
func (s *Store) AdoptExternal(rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal external record: %w", err)
	}

	s.writeMu.Lock()
	err = s.backend.Update(func(tx Tx) error {
		return tx.Set(recordKey, data)
	})
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	s.listeners.notify(EventStorageChanged, rec)
	s.bus.Publish(s.tabID, rec)
	return nil
}

// Reset discards the current record and re-seeds the medium with defaults.
func (s *Store) Reset() error {
	_, err := s.mutate(func(rec *domain.Record) error {
		fresh := s.seed.Clone()
		rec.Books = fresh.Books
		rec.Users = fresh.Users
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("store reset to default data")
	return nil
}
