// Package domain contains the core entities of the librería: books, users,
// cart items, the serialized store record, and the browsing session.
package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// PlaceholderImage is the cover shown for books created without an image.
const PlaceholderImage = "https://via.placeholder.com/300x400?text=Sin+Imagen"

// Book represents a title in the catalog.
// JSON tags follow the persisted wire shape.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"titulo" validate:"required,min=2"`
	Author      string    `json:"autor" validate:"required,min=2"`
	Category    string    `json:"categoria" validate:"required,min=2"`
	Price       float64   `json:"precio" validate:"gte=0"`
	Stock       int       `json:"stock" validate:"gte=0"`
	Description string    `json:"descripcion" validate:"required,min=10"`
	Image       string    `json:"imagen"`
	ISBN        string    `json:"isbn"`
	CreatedAt   time.Time `json:"fechaCreacion"`
}

// BookDraft is the input for creating a book. Identifier and derived fields
// are filled in by NewBook and the store.
type BookDraft struct {
	Title       string
	Author      string
	Category    string
	Price       float64
	Stock       int
	Description string
	Image       string
	ISBN        string
}

// NewBook constructs a book from a draft, applying defaults: placeholder
// image, a generated ISBN-like string, and the creation timestamp.
func NewBook(d BookDraft) Book {
	b := Book{
		Title:       strings.TrimSpace(d.Title),
		Author:      strings.TrimSpace(d.Author),
		Category:    strings.TrimSpace(d.Category),
		Price:       d.Price,
		Stock:       d.Stock,
		Description: strings.TrimSpace(d.Description),
		Image:       strings.TrimSpace(d.Image),
		ISBN:        strings.TrimSpace(d.ISBN),
		CreatedAt:   time.Now(),
	}
	if b.Image == "" {
		b.Image = PlaceholderImage
	}
	if b.ISBN == "" {
		b.ISBN = GenerateISBN()
	}
	return b
}

// GenerateISBN produces a fictitious ISBN-like string in the catalog's
// publisher range, e.g. "978-84-376-0417-3".
func GenerateISBN() string {
	return fmt.Sprintf("978-84-376-%04d-%d", rand.IntN(10000), rand.IntN(10))
}

// MatchesTitleAuthor reports whether the book has the given title and author,
// compared case-insensitively. The (title, author) pair is the book's
// uniqueness key within the catalog.
func (b *Book) MatchesTitleAuthor(title, author string) bool {
	return strings.EqualFold(b.Title, strings.TrimSpace(title)) &&
		strings.EqualFold(b.Author, strings.TrimSpace(author))
}

// InStock reports whether at least one copy is available.
func (b *Book) InStock() bool {
	return b.Stock > 0
}

// BookPatch describes a partial update of a book. Nil fields are left
// untouched; set fields are shallow-merged over the existing record.
type BookPatch struct {
	Title       *string
	Author      *string
	Category    *string
	Price       *float64
	Stock       *int
	Description *string
	Image       *string
	ISBN        *string
}

// Apply merges the set fields of the patch onto the book.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = strings.TrimSpace(*p.Title)
	}
	if p.Author != nil {
		b.Author = strings.TrimSpace(*p.Author)
	}
	if p.Category != nil {
		b.Category = strings.TrimSpace(*p.Category)
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.Stock != nil {
		b.Stock = *p.Stock
	}
	if p.Description != nil {
		b.Description = strings.TrimSpace(*p.Description)
	}
	if p.Image != nil {
		b.Image = strings.TrimSpace(*p.Image)
	}
	if p.ISBN != nil {
		b.ISBN = strings.TrimSpace(*p.ISBN)
	}
}

// ChangesTitleAuthor reports whether the patch touches the uniqueness key.
func (p BookPatch) ChangesTitleAuthor() bool {
	return p.Title != nil || p.Author != nil
}

// NextBookID returns the identifier the next added book receives:
// max(existing ids) + 1, or 1 for an empty collection.
func NextBookID(books []Book) int64 {
	var maxID int64
	for i := range books {
		if books[i].ID > maxID {
			maxID = books[i].ID
		}
	}
	return maxID + 1
}
