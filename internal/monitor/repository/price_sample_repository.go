package repository

import (
	"context"
	"errors"
	"fmt"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"

	"gorm.io/gorm"
)

// PriceSampleRepository persists and queries immutable price samples.
type PriceSampleRepository interface {
	Create(ctx context.Context, sample *entity.PriceSample) error
	// GetLast returns the most recent sample for the asset, or nil when the
	// asset has never been sampled.
	GetLast(ctx context.Context, assetID string) (*entity.PriceSample, error)
	ListRecent(ctx context.Context, assetID string, limit int) ([]entity.PriceSample, error)
}

type priceSampleRepository struct {
	db *gorm.DB
}

// NewPriceSampleRepository creates a new PriceSampleRepository.
func NewPriceSampleRepository(db *gorm.DB) PriceSampleRepository {
	return &priceSampleRepository{db: db}
}

func (r *priceSampleRepository) Create(ctx context.Context, sample *entity.PriceSample) error {
	if err := r.db.WithContext(ctx).Create(sample).Error; err != nil {
		return fmt.Errorf("%w: insert price sample: %v", dto.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *priceSampleRepository) GetLast(ctx context.Context, assetID string) (*entity.PriceSample, error) {
	var sample entity.PriceSample
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("observed_at DESC").
		First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query last price sample: %v", dto.ErrStoreUnavailable, err)
	}
	return &sample, nil
}

func (r *priceSampleRepository) ListRecent(ctx context.Context, assetID string, limit int) ([]entity.PriceSample, error) {
	var samples []entity.PriceSample
	query := r.db.WithContext(ctx).Order("observed_at DESC").Limit(limit)
	if assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if err := query.Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("%w: list price samples: %v", dto.ErrStoreUnavailable, err)
	}
	return samples, nil
}
