package repository

import (
	"context"
	"fmt"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"

	"gorm.io/gorm"
)

// DecisionRepository persists the engine's per-asset verdicts.
type DecisionRepository interface {
	Create(ctx context.Context, decision *entity.Decision) error
	ListRecent(ctx context.Context, limit int) ([]entity.Decision, error)
}

type decisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new DecisionRepository.
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) Create(ctx context.Context, decision *entity.Decision) error {
	if err := r.db.WithContext(ctx).Create(decision).Error; err != nil {
		return fmt.Errorf("%w: insert decision: %v", dto.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *decisionRepository) ListRecent(ctx context.Context, limit int) ([]entity.Decision, error) {
	var decisions []entity.Decision
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&decisions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list decisions: %v", dto.ErrStoreUnavailable, err)
	}
	return decisions, nil
}
