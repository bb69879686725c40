package manager

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/librosapp/libreria/internal/domain"
)

// Sort orders accepted by Filter.
const (
	SortTitle     = "titulo"
	SortAuthor    = "autor"
	SortPriceAsc  = "precio-asc"
	SortPriceDesc = "precio-desc"
)

// Price bands accepted by Filter, matching the storefront's filter dropdown.
const (
	PriceUpTo15 = "0-15"
	Price15To25 = "15-25"
	Price25To35 = "25-35"
	PriceOver35 = "35+"
)

// Filter describes a catalog query: free-text search over title and author,
// an exact category, a price band, and a sort order. Zero values mean
// "no restriction"; the zero Sort means title order.
type Filter struct {
	Query    string
	Category string
	Price    string
	Sort     string
}

// newCollator builds a Spanish collator. Collators carry internal buffers
// and are not safe for concurrent use, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase)
}

// Filter applies the catalog filter and returns the matching books sorted
// per the requested order.
func (m *Books) Filter(f Filter) []domain.Book {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	m.mu.RLock()
	out := make([]domain.Book, 0, len(m.books))
	for i := range m.books {
		b := &m.books[i]
		if q != "" &&
			!strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) {
			continue
		}
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if !matchesPriceBand(b.Price, f.Price) {
			continue
		}
		out = append(out, *b)
	}
	m.mu.RUnlock()

	sortBooks(out, f.Sort)
	return out
}

func matchesPriceBand(price float64, band string) bool {
	switch band {
	case "":
		return true
	case PriceUpTo15:
		return price >= 0 && price <= 15
	case Price15To25:
		return price > 15 && price <= 25
	case Price25To35:
		return price > 25 && price <= 35
	case PriceOver35:
		return price > 35
	default:
		return true
	}
}

func sortBooks(books []domain.Book, order string) {
	c := newCollator()
	sort.SliceStable(books, func(i, j int) bool {
		switch order {
		case SortAuthor:
			return c.CompareString(books[i].Author, books[j].Author) < 0
		case SortPriceAsc:
			return books[i].Price < books[j].Price
		case SortPriceDesc:
			return books[i].Price > books[j].Price
		default: // SortTitle
			return c.CompareString(books[i].Title, books[j].Title) < 0
		}
	})
}
