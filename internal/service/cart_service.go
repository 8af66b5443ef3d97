package service

import (
	"context"

	"shopfront/internal/domain"
	"shopfront/internal/repository"

	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic
type CartService interface {
	List(ctx context.Context) ([]domain.CartItem, error)
	Add(ctx context.Context, productID int64, size string) ([]domain.CartItem, error)
	Adjust(ctx context.Context, productID int64, size string, delta int) ([]domain.CartItem, error)
	Remove(ctx context.Context, productID int64, size string) ([]domain.CartItem, error)
}

type cartService struct {
	cart     repository.CartRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(cart repository.CartRepository, products repository.ProductRepository, logger *zap.Logger) CartService {
	return &cartService{cart: cart, products: products, logger: logger}
}

func (s *cartService) List(ctx context.Context) ([]domain.CartItem, error) {
	return s.cart.List(ctx)
}

// Add bumps the matching line by one, or appends a new line with a
// snapshot of the product's name, price and image.
func (s *cartService) Add(ctx context.Context, productID int64, size string) ([]domain.CartItem, error) {
	items, err := s.cart.Modify(ctx, func(items []domain.CartItem) ([]domain.CartItem, error) {
		if i := indexOfLine(items, productID, size); i >= 0 {
			items[i].Quantity++
			return items, nil
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return nil, err
		}

		return append(items, domain.CartItem{
			ProductID: product.ID,
			Size:      size,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  1,
		}), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart line added", zap.Int64("product_id", productID), zap.String("size", size))
	return items, nil
}

// Adjust adds delta to the line's quantity. A line that drops to zero is removed.
func (s *cartService) Adjust(ctx context.Context, productID int64, size string, delta int) ([]domain.CartItem, error) {
	items, err := s.cart.Modify(ctx, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOfLine(items, productID, size)
		if i < 0 {
			return nil, repository.ErrCartItemNotFound
		}
		items[i].Quantity += delta
		return items, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart line adjusted",
		zap.Int64("product_id", productID),
		zap.String("size", size),
		zap.Int("delta", delta),
	)
	return items, nil
}

// Remove drops the line for the product and size
func (s *cartService) Remove(ctx context.Context, productID int64, size string) ([]domain.CartItem, error) {
	items, err := s.cart.Modify(ctx, func(items []domain.CartItem) ([]domain.CartItem, error) {
		i := indexOfLine(items, productID, size)
		if i < 0 {
			return nil, repository.ErrCartItemNotFound
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Cart line removed", zap.Int64("product_id", productID), zap.String("size", size))
	return items, nil
}

func indexOfLine(items []domain.CartItem, productID int64, size string) int {
	for i, item := range items {
		if item.Matches(productID, size) {
			return i
		}
	}
	return -1
}
