package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopfront/internal/domain"
	"shopfront/internal/media"
	"shopfront/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrMissingProductFields = errors.New("name, price and category are required")
	ErrNegativePrice        = errors.New("price must not be negative")
	ErrTooManyFiles         = errors.New("too many files uploaded")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")
)

// MediaStore stores and removes product uploads
type MediaStore interface {
	Store(ctx context.Context, f media.File) (domain.MediaRef, error)
	Delete(ctx context.Context, refs ...domain.MediaRef)
}

// ProductInput carries product fields from a request.
// A nil field was absent from the request.
type ProductInput struct {
	Name        *string
	Price       *float64
	Category    *string
	Sizes       []string
	Description *string
}

// ReviewInput carries a new review
type ReviewInput struct {
	Name    string
	Rating  int
	Comment string
}

// CatalogOptions tunes product creation
type CatalogOptions struct {
	MaxFiles       int
	PlaceholderURL string
}

// CatalogService defines the interface for product business logic
type CatalogService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, in ProductInput, files []media.File) (*domain.Product, error)
	Update(ctx context.Context, id int64, in ProductInput, files []media.File) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (*domain.Product, error)
	AddReview(ctx context.Context, id int64, in ReviewInput) (*domain.Product, error)
	Seed(ctx context.Context) (bool, error)
}

type catalogService struct {
	products repository.ProductRepository
	media    MediaStore
	opts     CatalogOptions
	now      func() time.Time
	logger   *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(products repository.ProductRepository, mediaStore MediaStore, opts CatalogOptions, logger *zap.Logger) CatalogService {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = 10
	}
	return &catalogService{
		products: products,
		media:    mediaStore,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *catalogService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *catalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Create stores the uploads, derives the image and appends the product
func (s *catalogService) Create(ctx context.Context, in ProductInput, files []media.File) (*domain.Product, error) {
	if in.Name == nil || in.Price == nil || in.Category == nil {
		return nil, ErrMissingProductFields
	}
	if *in.Price < 0 {
		return nil, ErrNegativePrice
	}

	refs, err := s.storeMedia(ctx, files)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		Name:     strings.TrimSpace(*in.Name),
		Price:    *in.Price,
		Category: strings.TrimSpace(*in.Category),
		Sizes:    normalizeSizes(in.Sizes),
		Reviews:  []domain.Review{},
	}
	if len(product.Sizes) == 0 {
		product.Sizes = append([]string(nil), domain.DefaultSizes...)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	product.SetMedia(refs, s.opts.PlaceholderURL)

	if err := s.products.Create(ctx, product); err != nil {
		s.media.Delete(ctx, refs...)
		return nil, err
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int("media", len(product.Media)),
	)
	return product, nil
}

// Update overwrites the fields present in the input and keeps the rest.
// Uploaded files replace the whole media list.
func (s *catalogService) Update(ctx context.Context, id int64, in ProductInput, files []media.File) (*domain.Product, error) {
	if in.Price != nil && *in.Price < 0 {
		return nil, ErrNegativePrice
	}

	refs, err := s.storeMedia(ctx, files)
	if err != nil {
		return nil, err
	}

	var replaced []domain.MediaRef
	updated, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Price != nil {
			p.Price = *in.Price
		}
		if in.Category != nil {
			p.Category = strings.TrimSpace(*in.Category)
		}
		if sizes := normalizeSizes(in.Sizes); len(sizes) > 0 {
			p.Sizes = sizes
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if len(refs) > 0 {
			replaced = p.Media
			p.SetMedia(refs, s.opts.PlaceholderURL)
		}
		return nil
	})
	if err != nil {
		s.media.Delete(ctx, refs...)
		return nil, err
	}

	s.media.Delete(ctx, replaced...)
	s.logger.Info("Product updated",
		zap.Int64("product_id", id),
		zap.Int("media_replaced", len(replaced)),
	)
	return updated, nil
}

// Delete removes the product and then its files
func (s *catalogService) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.media.Delete(ctx, deleted.Media...)
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return deleted, nil
}

// AddReview appends a review dated today
func (s *catalogService) AddReview(ctx context.Context, id int64, in ReviewInput) (*domain.Product, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}

	review := domain.Review{
		Name:    strings.TrimSpace(in.Name),
		Date:    s.now().UTC().Format(time.DateOnly),
		Rating:  in.Rating,
		Comment: in.Comment,
	}

	product, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		p.Reviews = append(p.Reviews, review)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Review added", zap.Int64("product_id", id), zap.Int("rating", review.Rating))
	return product, nil
}

// Seed writes the default catalog when no products exist
func (s *catalogService) Seed(ctx context.Context) (bool, error) {
	seeded, err := s.products.SeedIfEmpty(ctx, DefaultCatalog(s.opts.PlaceholderURL))
	if err != nil {
		return false, err
	}
	if seeded {
		s.logger.Info("Default catalog written")
	}
	return seeded, nil
}

func (s *catalogService) storeMedia(ctx context.Context, files []media.File) ([]domain.MediaRef, error) {
	if len(files) > s.opts.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d allowed", ErrTooManyFiles, s.opts.MaxFiles)
	}

	refs := make([]domain.MediaRef, 0, len(files))
	for _, f := range files {
		ref, err := s.media.Store(ctx, f)
		if err != nil {
			s.media.Delete(ctx, refs...)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// normalizeSizes trims labels and drops empty and duplicate entries
func normalizeSizes(sizes []string) []string {
	seen := make(map[string]bool, len(sizes))
	out := make([]string, 0, len(sizes))
	for _, size := range sizes {
		size = strings.TrimSpace(size)
		if size == "" || seen[size] {
			continue
		}
		seen[size] = true
		out = append(out, size)
	}
	return out
}
