package cart

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librosapp/libreria/internal/domain"
	domainerrors "github.com/librosapp/libreria/internal/errors"
	"github.com/librosapp/libreria/internal/storage"
)

func setupCart(t *testing.T) (*Cart, storage.Backend) {
	t.Helper()

	backend, err := storage.OpenBadger(filepath.Join(t.TempDir(), "db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	c := New(backend, "test", slog.New(slog.DiscardHandler))
	c.SetProcessingDelay(time.Millisecond)
	return c, backend
}

func testBook() domain.Book {
	return domain.Book{
		ID:     1,
		Title:  "El Principito",
		Author: "Antoine de Saint-Exupéry",
		Price:  25.90,
		Image:  "https://covers.example.com/el-principito.jpg",
		Stock:  3,
	}
}

func TestCartStartsEmpty(t *testing.T) {
	c, _ := setupCart(t)

	items, err := c.Items()
	require.NoError(t, err)
	assert.Empty(t, items)

	count, err := c.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCartAddSnapshotsTheBook(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 2))

	items, err := c.Items()
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, int64(1), item.BookID)
	assert.Equal(t, "El Principito", item.Title)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 3, item.StockCeiling)
	assert.InDelta(t, 51.80, item.Subtotal(), 0.001)
}

func TestCartAddAccumulatesQuantity(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 1))
	require.NoError(t, c.Add(testBook(), 2))

	items, err := c.Items()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCartAddHonorsStockCeiling(t *testing.T) {
	c, _ := setupCart(t)

	book := testBook()
	book.Stock = 2
	require.NoError(t, c.Add(book, 2))

	err := c.Add(book, 1)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// The failed add left the cart untouched.
	items, err := c.Items()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestCartAddRejectsOutOfStockBook(t *testing.T) {
	c, _ := setupCart(t)

	book := testBook()
	book.Stock = 0
	err := c.Add(book, 1)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCartAddRejectsNonPositiveQuantity(t *testing.T) {
	c, _ := setupCart(t)

	assert.ErrorIs(t, c.Add(testBook(), 0), domainerrors.ErrValidation)
	assert.ErrorIs(t, c.Add(testBook(), -1), domainerrors.ErrValidation)
}

func TestCartChangeQuantity(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 1))
	require.NoError(t, c.ChangeQuantity(1, 3))

	items, err := c.Items()
	require.NoError(t, err)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestCartChangeQuantityAboveCeilingFails(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 1))

	err := c.ChangeQuantity(1, 4)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	items, err := c.Items()
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestCartChangeQuantityToZeroRemoves(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 2))
	require.NoError(t, c.ChangeQuantity(1, 0))

	items, err := c.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartChangeQuantityUnknownBook(t *testing.T) {
	c, _ := setupCart(t)

	err := c.ChangeQuantity(404, 1)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCartRemoveIsIdempotent(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 1))
	require.NoError(t, c.Remove(1))
	require.NoError(t, c.Remove(1))

	items, err := c.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartTotalAndCount(t *testing.T) {
	c, _ := setupCart(t)

	other := testBook()
	other.ID = 2
	other.Title = "Matilda"
	other.Price = 22.00
	other.Stock = 5

	require.NoError(t, c.Add(testBook(), 2))
	require.NoError(t, c.Add(other, 1))

	total, err := c.Total()
	require.NoError(t, err)
	assert.InDelta(t, 73.80, total, 0.001)

	count, err := c.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCartPersistsPerOwner(t *testing.T) {
	c, backend := setupCart(t)

	require.NoError(t, c.Add(testBook(), 2))

	// Same owner, fresh handle: contents survive.
	again := New(backend, "test", slog.New(slog.DiscardHandler))
	items, err := again.Items()
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// A different owner starts empty.
	other := New(backend, "otro", slog.New(slog.DiscardHandler))
	items, err = other.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckoutEmptyCartFails(t *testing.T) {
	c, _ := setupCart(t)

	_, err := c.Checkout(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCheckoutClearsCartAndReturnsReceipt(t *testing.T) {
	c, _ := setupCart(t)

	require.NoError(t, c.Add(testBook(), 2))

	receipt, err := c.Checkout(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.ID)
	assert.InDelta(t, 51.80, receipt.Total, 0.001)
	assert.Len(t, receipt.Items, 1)
	assert.False(t, receipt.CreatedAt.IsZero())

	items, err := c.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCheckoutHonorsContextCancellation(t *testing.T) {
	c, _ := setupCart(t)
	c.SetProcessingDelay(time.Minute)

	require.NoError(t, c.Add(testBook(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Checkout(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The cart stays intact after an aborted checkout.
	items, err := c.Items()
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
