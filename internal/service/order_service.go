package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"shopfront/internal/domain"
	"shopfront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCartEmpty = errors.New("cart is empty")
)

// PaymentInput is the card data submitted at checkout
type PaymentInput struct {
	CardName   string
	CardNumber string
	Expiry     string
}

// Pricing holds the checkout rates
type Pricing struct {
	ShippingFlat float64
	TaxRate      float64
}

// OrderService defines the interface for checkout business logic
type OrderService interface {
	PlaceOrder(ctx context.Context, customer json.RawMessage, payment PaymentInput) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
}

type orderService struct {
	orders  repository.OrderRepository
	pricing Pricing
	now     func() time.Time
	logger  *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository, pricing Pricing, logger *zap.Logger) OrderService {
	return &orderService{
		orders:  orders,
		pricing: pricing,
		now:     time.Now,
		logger:  logger,
	}
}

// PlaceOrder snapshots the cart into an order and clears the cart
func (s *orderService) PlaceOrder(ctx context.Context, customer json.RawMessage, payment PaymentInput) (*domain.Order, error) {
	if len(customer) == 0 {
		customer = json.RawMessage("{}")
	}

	order, err := s.orders.PlaceFromCart(ctx, func(cart []domain.CartItem) (*domain.Order, error) {
		if len(cart) == 0 {
			return nil, ErrCartEmpty
		}

		return &domain.Order{
			Date:     s.now().UTC().Format(time.RFC3339),
			Customer: customer,
			Items:    cart,
			Payment: domain.Payment{
				CardName:        payment.CardName,
				CardNumberLast4: RedactCardNumber(payment.CardNumber),
				Expiry:          payment.Expiry,
			},
			Totals: ComputeTotals(cart, s.pricing),
			Status: domain.OrderStatusProcessing,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", order.Totals.Total),
	)
	return order, nil
}

func (s *orderService) List(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

// ComputeTotals prices the items in cents. Tax is rounded half away from zero.
func ComputeTotals(items []domain.CartItem, pricing Pricing) domain.Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = decimal.NewFromFloat(pricing.ShippingFlat).Round(2)
	}
	tax := subtotal.Mul(decimal.NewFromFloat(pricing.TaxRate)).Round(2)
	total := subtotal.Add(shipping).Add(tax)

	return domain.Totals{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

// RedactCardNumber keeps the last four characters of the card number
func RedactCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)

	runes := []rune(digits)
	if len(runes) <= 4 {
		return digits
	}
	return string(runes[len(runes)-4:])
}
