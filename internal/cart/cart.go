// Package cart holds a shopper's selected books. Each cart is persisted as
// a flat item array under its own key, outside the catalog record.
package cart

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/storage"
)

const keyPrefix = "carrito"

// Cart is one shopper's cart, persisted in the shared key-value medium.
type Cart struct {
	backend storage.Backend
	logger  *slog.Logger
	key     string

	// processingDelay simulates the payment gateway round trip.
	processingDelay time.Duration

	mu sync.Mutex
}

// New opens the cart for the given owner, usually a session or user
// identifier. An owner with no stored cart starts empty.
func New(backend storage.Backend, owner string, logger *slog.Logger) *Cart {
	return &Cart{
		backend:         backend,
		logger:          logger,
		key:             keyPrefix + ":" + owner,
		processingDelay: defaultProcessingDelay,
	}
}

// Items returns the cart's contents in insertion order.
func (c *Cart) Items() ([]domain.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Count returns the total number of units across all items.
func (c *Cart) Count() (int, error) {
	items, err := c.Items()
	if err != nil {
		return 0, err
	}
	var n int
	for i := range items {
		n += items[i].Quantity
	}
	return n, nil
}

// Total returns the sum of all item subtotals.
func (c *Cart) Total() (float64, error) {
	items, err := c.Items()
	if err != nil {
		return 0, err
	}
	var total float64
	for i := range items {
		total += items[i].Subtotal()
	}
	return total, nil
}

// Add puts quantity units of the book into the cart. Adding a book already
// in the cart raises its quantity. The combined quantity can never exceed
// the book's available stock; a violating add fails with Validation and
// leaves the cart unchanged.
func (c *Cart) Add(book domain.Book, quantity int) error {
	if quantity <= 0 {
		return errors.Validation("quantity must be at least 1")
	}
	if !book.InStock() {
		return errors.Validationf("%q is out of stock", book.Title)
	}

	return c.mutate(func(items []domain.CartItem) ([]domain.CartItem, error) {
		idx := slices.IndexFunc(items, func(it domain.CartItem) bool {
			return it.BookID == book.ID
		})
		if idx < 0 {
			if quantity > book.Stock {
				return nil, errors.Validationf("only %d units of %q available", book.Stock, book.Title)
			}
			return append(items, domain.NewCartItem(book, quantity)), nil
		}

		next := items[idx].Quantity + quantity
		if next > book.Stock {
			return nil, errors.Validationf("only %d units of %q available", book.Stock, book.Title)
		}
		items[idx].Quantity = next
		// Refresh the snapshot so later quantity changes honor current stock.
		items[idx].StockCeiling = book.Stock
		items[idx].Price = book.Price
		return items, nil
	})
}

// ChangeQuantity sets the quantity of the item with the given book id.
// Zero or negative removes the item; a quantity above the item's stock
// ceiling fails with Validation and leaves the cart unchanged.
func (c *Cart) ChangeQuantity(bookID int64, quantity int) error {
	return c.mutate(func(items []domain.CartItem) ([]domain.CartItem, error) {
		idx := slices.IndexFunc(items, func(it domain.CartItem) bool {
			return it.BookID == bookID
		})
		if idx < 0 {
			return nil, errors.NotFound("book is not in the cart")
		}
		if quantity <= 0 {
			return slices.Delete(items, idx, idx+1), nil
		}
		if quantity > items[idx].StockCeiling {
			return nil, errors.Validationf("only %d units of %q available",
				items[idx].StockCeiling, items[idx].Title)
		}
		items[idx].Quantity = quantity
		return items, nil
	})
}

// Remove drops the item with the given book id. Removing a book that is
// not in the cart is not an error.
func (c *Cart) Remove(bookID int64) error {
	return c.mutate(func(items []domain.CartItem) ([]domain.CartItem, error) {
		return slices.DeleteFunc(items, func(it domain.CartItem) bool {
			return it.BookID == bookID
		}), nil
	})
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked()
}

func (c *Cart) clearLocked() error {
	return c.backend.Update(func(tx storage.Tx) error {
		return tx.Delete(c.key)
	})
}

// mutate loads the items, applies fn, and persists the result. fn failing
// leaves the stored cart untouched.
func (c *Cart) mutate(fn func(items []domain.CartItem) ([]domain.CartItem, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return err
	}
	next, err := fn(items)
	if err != nil {
		return err
	}
	return c.save(next)
}

func (c *Cart) load() ([]domain.CartItem, error) {
	var items []domain.CartItem
	err := c.backend.View(func(tx storage.Tx) error {
		data, err := tx.Get(c.key)
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	return items, nil
}

func (c *Cart) save(items []domain.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	err = c.backend.Update(func(tx storage.Tx) error {
		return tx.Set(c.key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	c.logger.Debug("cart saved", "key", c.key, "items", len(items))
	return nil
}
