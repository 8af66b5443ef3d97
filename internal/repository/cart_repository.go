package repository

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/database"
	"shopfront/internal/domain"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	List(ctx context.Context) ([]domain.CartItem, error)
	Modify(ctx context.Context, mutate func(items []domain.CartItem) ([]domain.CartItem, error)) ([]domain.CartItem, error)
}

type cartRepository struct {
	store database.Store
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(store database.Store) CartRepository {
	return &cartRepository{store: store}
}

// List returns every cart line
func (r *cartRepository) List(ctx context.Context) ([]domain.CartItem, error) {
	items, err := database.Load[domain.CartItem](ctx, r.store, database.Cart)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	return items, nil
}

// Modify runs mutate on the current cart while holding the cart lock.
// Lines with a quantity below one are dropped before saving.
func (r *cartRepository) Modify(ctx context.Context, mutate func(items []domain.CartItem) ([]domain.CartItem, error)) ([]domain.CartItem, error) {
	var result []domain.CartItem

	err := r.store.Update(ctx, func(tx database.Tx) error {
		items, err := database.LoadTx[domain.CartItem](tx, database.Cart)
		if err != nil {
			return err
		}

		items, err = mutate(items)
		if err != nil {
			return err
		}

		result = compactCart(items)
		return database.SaveTx(tx, database.Cart, result)
	}, database.Cart)

	if err != nil {
		if errors.Is(err, ErrCartItemNotFound) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}
	return result, nil
}

func compactCart(items []domain.CartItem) []domain.CartItem {
	kept := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			kept = append(kept, item)
		}
	}
	return kept
}
