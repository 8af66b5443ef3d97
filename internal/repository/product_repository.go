package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopfront/internal/database"
	"shopfront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id int64, mutate func(p *domain.Product) error) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (*domain.Product, error)
	SeedIfEmpty(ctx context.Context, products []domain.Product) (bool, error)
}

type productRepository struct {
	store database.Store
	now   func() time.Time
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(store database.Store) ProductRepository {
	return &productRepository{store: store, now: time.Now}
}

// List returns every product in stored order
func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	products, err := database.Load[domain.Product](ctx, r.store, database.Products)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	if i := indexOfProduct(products, id); i >= 0 {
		return &products[i], nil
	}
	return nil, ErrProductNotFound
}

// Create assigns the next timestamp-derived ID and appends the product.
// IDs are the current unix millis, bumped past the largest existing ID so
// two creates in the same millisecond never collide.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	err := r.store.Update(ctx, func(tx database.Tx) error {
		products, err := database.LoadTx[domain.Product](tx, database.Products)
		if err != nil {
			return err
		}

		id := r.now().UnixMilli()
		for _, p := range products {
			if p.ID >= id {
				id = p.ID + 1
			}
		}
		product.ID = id

		return database.SaveTx(tx, database.Products, append(products, *product))
	}, database.Products)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update applies mutate to the stored product and persists the result
func (r *productRepository) Update(ctx context.Context, id int64, mutate func(p *domain.Product) error) (*domain.Product, error) {
	var updated domain.Product

	err := r.store.Update(ctx, func(tx database.Tx) error {
		products, err := database.LoadTx[domain.Product](tx, database.Products)
		if err != nil {
			return err
		}

		i := indexOfProduct(products, id)
		if i < 0 {
			return ErrProductNotFound
		}

		if err := mutate(&products[i]); err != nil {
			return err
		}
		products[i].ID = id
		updated = products[i]

		return database.SaveTx(tx, database.Products, products)
	}, database.Products)

	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &updated, nil
}

// Delete removes a product and returns the removed record
func (r *productRepository) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	var deleted domain.Product

	err := r.store.Update(ctx, func(tx database.Tx) error {
		products, err := database.LoadTx[domain.Product](tx, database.Products)
		if err != nil {
			return err
		}

		i := indexOfProduct(products, id)
		if i < 0 {
			return ErrProductNotFound
		}

		deleted = products[i]
		products = append(products[:i], products[i+1:]...)

		return database.SaveTx(tx, database.Products, products)
	}, database.Products)

	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &deleted, nil
}

// SeedIfEmpty writes products only when the catalog has no records
func (r *productRepository) SeedIfEmpty(ctx context.Context, products []domain.Product) (bool, error) {
	seeded := false

	err := r.store.Update(ctx, func(tx database.Tx) error {
		existing, err := database.LoadTx[domain.Product](tx, database.Products)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		seeded = true
		return database.SaveTx(tx, database.Products, products)
	}, database.Products)

	if err != nil {
		return false, fmt.Errorf("failed to seed products: %w", err)
	}
	return seeded, nil
}

func indexOfProduct(products []domain.Product, id int64) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}
