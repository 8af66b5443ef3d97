package domain

// CartItem is a cart line keyed by product and size.
// Name, Price and Image are copied from the product when the line is created.
type CartItem struct {
	ProductID int64   `json:"productId"`
	Size      string  `json:"size"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// Matches reports whether the line has the given key
func (c CartItem) Matches(productID int64, size string) bool {
	return c.ProductID == productID && c.Size == size
}
