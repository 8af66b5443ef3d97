package service

import (
	"context"
	"fmt"
	"time"

	"shopfront/internal/repository"

	"go.uber.org/zap"
)

// MediaJanitor removes upload files in bulk
type MediaJanitor interface {
	DeleteAll(ctx context.Context) (int, error)
	Sweep(ctx context.Context, keep map[string]bool, minAge time.Duration) (int, error)
}

// WipeReport summarises a self-destruct run
type WipeReport struct {
	repository.WipeResult
	Files int `json:"files"`
}

// MaintenanceService defines the interface for store-wide operations
type MaintenanceService interface {
	WipeAll(ctx context.Context) (WipeReport, error)
	SweepOrphans(ctx context.Context) (int, error)
}

type maintenanceService struct {
	repo        repository.MaintenanceRepository
	media       MediaJanitor
	sweepMinAge time.Duration
	logger      *zap.Logger
}

// NewMaintenanceService creates a new instance of MaintenanceService
func NewMaintenanceService(repo repository.MaintenanceRepository, media MediaJanitor, sweepMinAge time.Duration, logger *zap.Logger) MaintenanceService {
	return &maintenanceService{
		repo:        repo,
		media:       media,
		sweepMinAge: sweepMinAge,
		logger:      logger,
	}
}

// WipeAll empties every collection and then deletes every upload
func (s *maintenanceService) WipeAll(ctx context.Context) (WipeReport, error) {
	result, err := s.repo.WipeAll(ctx)
	if err != nil {
		return WipeReport{}, err
	}

	files, err := s.media.DeleteAll(ctx)
	if err != nil {
		return WipeReport{WipeResult: result, Files: files}, fmt.Errorf("collections wiped but uploads remain: %w", err)
	}

	s.logger.Warn("Store wiped",
		zap.Int("products", result.Products),
		zap.Int("cart_items", result.CartItems),
		zap.Int("orders", result.Orders),
		zap.Int("files", files),
	)
	return WipeReport{WipeResult: result, Files: files}, nil
}

// SweepOrphans deletes uploads that no product references.
// Files younger than the configured minimum age are skipped.
func (s *maintenanceService) SweepOrphans(ctx context.Context) (int, error) {
	referenced, err := s.repo.ReferencedMedia(ctx)
	if err != nil {
		return 0, err
	}

	removed, err := s.media.Sweep(ctx, referenced, s.sweepMinAge)
	if err != nil {
		return removed, fmt.Errorf("failed to sweep uploads: %w", err)
	}

	if removed > 0 {
		s.logger.Info("Orphaned uploads removed", zap.Int("count", removed))
	}
	return removed, nil
}
