package domain

// CartItem is a catalog snapshot of a selected book plus the chosen quantity.
// Carts live outside the store record and are persisted separately as a flat
// array, independent of the record's versioning.
type CartItem struct {
	BookID   int64   `json:"id"`
	Title    string  `json:"titulo"`
	Author   string  `json:"autor"`
	Price    float64 `json:"precio"`
	Image    string  `json:"imagen"`
	Quantity int     `json:"cantidad"`
	// StockCeiling is the book's stock at add-time; the quantity can never
	// be raised above it.
	StockCeiling int `json:"stockDisponible"`
}

// NewCartItem snapshots a book into a cart item with the given quantity.
func NewCartItem(b Book, quantity int) CartItem {
	return CartItem{
		BookID:       b.ID,
		Title:        b.Title,
		Author:       b.Author,
		Price:        b.Price,
		Image:        b.Image,
		Quantity:     quantity,
		StockCeiling: b.Stock,
	}
}

// Subtotal returns price times quantity.
func (i *CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
