package domain

import "encoding/json"

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
)

// Order is an immutable snapshot of a checked-out cart
type Order struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Customer json.RawMessage `json:"customer"`
	Items    []CartItem      `json:"items"`
	Payment  Payment         `json:"payment"`
	Totals   Totals          `json:"totals"`
	Status   OrderStatus     `json:"status"`
}

// Payment holds the redacted card details kept with an order.
// The full card number is never stored.
type Payment struct {
	CardName        string `json:"cardName"`
	CardNumberLast4 string `json:"cardNumberLast4"`
	Expiry          string `json:"expiry"`
}

// Totals are the monetary amounts of an order, rounded to cents
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}
