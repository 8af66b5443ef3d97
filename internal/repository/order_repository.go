package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopfront/internal/database"
	"shopfront/internal/domain"
)

const orderIDPrefix = "ORD-"

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	List(ctx context.Context) ([]domain.Order, error)
	PlaceFromCart(ctx context.Context, build func(cart []domain.CartItem) (*domain.Order, error)) (*domain.Order, error)
}

type orderRepository struct {
	store database.Store
	now   func() time.Time
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(store database.Store) OrderRepository {
	return &orderRepository{store: store, now: time.Now}
}

// List returns every order in placement order
func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	orders, err := database.Load[domain.Order](ctx, r.store, database.Orders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// PlaceFromCart builds an order from the current cart, stores it and
// empties the cart in one transaction over both collections.
func (r *orderRepository) PlaceFromCart(ctx context.Context, build func(cart []domain.CartItem) (*domain.Order, error)) (*domain.Order, error) {
	var placed *domain.Order

	err := r.store.Update(ctx, func(tx database.Tx) error {
		cart, err := database.LoadTx[domain.CartItem](tx, database.Cart)
		if err != nil {
			return err
		}

		order, err := build(cart)
		if err != nil {
			return err
		}

		orders, err := database.LoadTx[domain.Order](tx, database.Orders)
		if err != nil {
			return err
		}

		order.ID = r.nextID(orders)
		if err := database.SaveTx(tx, database.Orders, append(orders, *order)); err != nil {
			return err
		}
		if err := database.SaveTx(tx, database.Cart, []domain.CartItem{}); err != nil {
			return err
		}

		placed = order
		return nil
	}, database.Orders, database.Cart)

	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return placed, nil
}

// nextID returns ORD-<unix millis>, bumped past any existing order ID
func (r *orderRepository) nextID(orders []domain.Order) string {
	next := r.now().UnixMilli()
	for _, o := range orders {
		n, err := strconv.ParseInt(strings.TrimPrefix(o.ID, orderIDPrefix), 10, 64)
		if err == nil && n >= next {
			next = n + 1
		}
	}
	return orderIDPrefix + strconv.FormatInt(next, 10)
}
