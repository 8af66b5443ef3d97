package repository

import (
	"context"
	"fmt"

	"shopfront/internal/database"
	"shopfront/internal/domain"
)

// WipeResult counts the records removed by a wipe
type WipeResult struct {
	Products  int `json:"products"`
	CartItems int `json:"cartItems"`
	Orders    int `json:"orders"`
}

// MaintenanceRepository covers operations spanning every collection
type MaintenanceRepository interface {
	WipeAll(ctx context.Context) (WipeResult, error)
	ReferencedMedia(ctx context.Context) (map[string]bool, error)
}

type maintenanceRepository struct {
	store database.Store
}

// NewMaintenanceRepository creates a new instance of MaintenanceRepository
func NewMaintenanceRepository(store database.Store) MaintenanceRepository {
	return &maintenanceRepository{store: store}
}

// WipeAll empties all collections in a single transaction
func (r *maintenanceRepository) WipeAll(ctx context.Context) (WipeResult, error) {
	var result WipeResult

	err := r.store.Update(ctx, func(tx database.Tx) error {
		products, err := database.LoadTx[domain.Product](tx, database.Products)
		if err != nil {
			return err
		}
		cart, err := database.LoadTx[domain.CartItem](tx, database.Cart)
		if err != nil {
			return err
		}
		orders, err := database.LoadTx[domain.Order](tx, database.Orders)
		if err != nil {
			return err
		}

		result = WipeResult{
			Products:  len(products),
			CartItems: len(cart),
			Orders:    len(orders),
		}

		for _, c := range database.AllCollections {
			if err := tx.Put(c, []byte("[]")); err != nil {
				return err
			}
		}
		return nil
	}, database.AllCollections...)

	if err != nil {
		return WipeResult{}, fmt.Errorf("failed to wipe collections: %w", err)
	}
	return result, nil
}

// ReferencedMedia returns the stored names of every file owned by a product.
// A corrupt products document is an error, never an empty catalog.
func (r *maintenanceRepository) ReferencedMedia(ctx context.Context) (map[string]bool, error) {
	products, err := database.LoadStrict[domain.Product](ctx, r.store, database.Products)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	referenced := make(map[string]bool)
	for _, p := range products {
		for _, m := range p.Media {
			if m.StoredName != "" {
				referenced[m.StoredName] = true
			}
		}
	}
	return referenced, nil
}
