package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/librosapp/libreria/internal/domain"
	"github.com/librosapp/libreria/internal/errors"
)

// defaultProcessingDelay mirrors the simulated payment gateway round trip.
const defaultProcessingDelay = 3 * time.Second

// Receipt is the result of a completed checkout.
type Receipt struct {
	ID        string            `json:"id"`
	Items     []domain.CartItem `json:"items"`
	Total     float64           `json:"total"`
	CreatedAt time.Time         `json:"createdAt"`
}

// SetProcessingDelay overrides the simulated payment delay. Useful in tests.
func (c *Cart) SetProcessingDelay(d time.Duration) {
	c.mu.Lock()
	c.processingDelay = d
	c.mu.Unlock()
}

// Checkout processes the cart as a simulated payment. An empty cart fails
// with Validation. On success the cart is cleared and a receipt returned.
// The context cancels the wait on the simulated gateway.
func (c *Cart) Checkout(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load()
	if err != nil {
		return Receipt{}, err
	}
	if len(items) == 0 {
		return Receipt{}, errors.Validation("the cart is empty")
	}

	var total float64
	for i := range items {
		total += items[i].Subtotal()
	}

	timer := time.NewTimer(c.processingDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}

	if err := c.clearLocked(); err != nil {
		return Receipt{}, err
	}

	receipt := Receipt{
		ID:        uuid.NewString(),
		Items:     items,
		Total:     total,
		CreatedAt: time.Now(),
	}
	c.logger.Info("checkout complete", "receipt", receipt.ID, "total", total)
	return receipt, nil
}
