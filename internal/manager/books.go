// Package manager provides validated CRUD over one entity type, always
// mirroring into the store. Managers hold the page-local copy of a
// collection; the synchronizer refreshes them when the store changes.
package manager

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/storage"
	"github.com/librosapp/libreria/internal/validation"
)

// Books manages the in-memory book collection.
type Books struct {
	store    *storage.Store
	validate *validation.Validator
	logger   *slog.Logger

	mu    sync.RWMutex
	books []domain.Book
}

// NewBooks creates an empty book manager backed by the store.
func NewBooks(store *storage.Store, validate *validation.Validator, logger *slog.Logger) *Books {
	return &Books{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// LoadFromStore replaces the in-memory collection with the store's current
// book sequence.
func (m *Books) LoadFromStore() error {
	books, err := m.store.Books()
	if err != nil {
		return err
	}
	m.LoadData(books)
	return nil
}

// LoadData replaces the in-memory collection with freshly defaulted entities.
func (m *Books) LoadData(items []domain.Book) {
	books := make([]domain.Book, len(items))
	for i, b := range items {
		books[i] = withBookDefaults(b)
	}

	m.mu.Lock()
	m.books = books
	m.mu.Unlock()
}

// withBookDefaults fills derived fields that older or hand-imported records
// may be missing.
func withBookDefaults(b domain.Book) domain.Book {
	if b.Image == "" {
		b.Image = domain.PlaceholderImage
	}
	if b.ISBN == "" {
		b.ISBN = domain.GenerateISBN()
	}
	return b
}

// All returns a copy of the collection in stored order.
func (m *Books) All() []domain.Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.books)
}

// Count returns the number of books.
func (m *Books) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// Get returns the book with the given id.
func (m *Books) Get(bookID int64) (domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.books {
		if m.books[i].ID == bookID {
			return m.books[i], nil
		}
	}
	return domain.Book{}, errors.NotFound("book not found")
}

// Create validates and appends a new book, then persists the collection.
// Fails with Validation (listing every violated rule) or Duplicate when a
// book with the same title and author already exists.
func (m *Books) Create(draft domain.BookDraft) (domain.Book, error) {
	book := domain.NewBook(draft)

	if err := m.validate.Validate(&book); err != nil {
		return domain.Book{}, err
	}

	// Uniqueness and id assignment run against the committed sequence so
	// overlapping creates cannot share a snapshot and lose a book.
	next, err := m.store.MutateBooks(func(books []domain.Book) ([]domain.Book, error) {
		for i := range books {
			if books[i].MatchesTitleAuthor(book.Title, book.Author) {
				return nil, errors.Duplicate("a book with this title and author already exists")
			}
		}
		book.ID = domain.NextBookID(books)
		return append(books, book), nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	m.LoadData(next)

	m.logger.Info("book created", "id", book.ID, "title", book.Title)
	return book, nil
}

// Update merges the patch onto the stored book, re-validates the merged
// result, and re-checks title/author uniqueness only when the patch touches
// those fields.
func (m *Books) Update(bookID int64, patch domain.BookPatch) (domain.Book, error) {
	var merged domain.Book
	next, err := m.store.MutateBooks(func(books []domain.Book) ([]domain.Book, error) {
		idx := slices.IndexFunc(books, func(b domain.Book) bool { return b.ID == bookID })
		if idx < 0 {
			return nil, errors.NotFound("book not found")
		}

		merged = books[idx]
		patch.Apply(&merged)

		if err := m.validate.Validate(&merged); err != nil {
			return nil, err
		}

		if patch.ChangesTitleAuthor() {
			for i := range books {
				if i != idx && books[i].MatchesTitleAuthor(merged.Title, merged.Author) {
					return nil, errors.Duplicate("a book with this title and author already exists")
				}
			}
		}

		books[idx] = merged
		return books, nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	m.LoadData(next)

	return merged, nil
}

// Delete removes the book with the given id and persists the collection.
func (m *Books) Delete(bookID int64) (domain.Book, error) {
	var removed domain.Book
	next, err := m.store.MutateBooks(func(books []domain.Book) ([]domain.Book, error) {
		idx := slices.IndexFunc(books, func(b domain.Book) bool { return b.ID == bookID })
		if idx < 0 {
			return nil, errors.NotFound("book not found")
		}
		removed = books[idx]
		return slices.Delete(books, idx, idx+1), nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	m.LoadData(next)

	m.logger.Info("book deleted", "id", bookID, "title", removed.Title)
	return removed, nil
}

// Search returns books whose title, author, or category contains the query,
// case-insensitively, preserving stored order.
func (m *Books) Search(query string) []domain.Book {
	q := strings.ToLower(strings.TrimSpace(query))

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Book
	for i := range m.books {
		b := &m.books[i]
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.Category), q) {
			out = append(out, *b)
		}
	}
	return out
}

// FilterByCategory returns books in the given category; an empty category
// returns everything.
func (m *Books) FilterByCategory(category string) []domain.Book {
	if category == "" {
		return m.All()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Book
	for i := range m.books {
		if m.books[i].Category == category {
			out = append(out, m.books[i])
		}
	}
	return out
}
