package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"

	"gorm.io/gorm"
)

// ErrAlertNotFound is returned when no alert matches a delivery reference.
var ErrAlertNotFound = errors.New("alert not found")

// FeedbackStats aggregates user feedback across all alerts.
type FeedbackStats struct {
	Total    int64 `json:"total"`
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
}

// AlertRepository persists delivered alerts and applies feedback
// transitions. ApplyFeedback is the only write path that touches an alert
// after creation.
type AlertRepository interface {
	Create(ctx context.Context, alert *entity.Alert) error
	// GetRecent returns the asset's most recent alerts, newest first,
	// including their feedback outcomes.
	GetRecent(ctx context.Context, assetID string, limit int) ([]entity.Alert, error)
	// ApplyFeedback sets the alert's feedback if and only if it is still
	// unset. It reports whether the transition happened; a duplicate event
	// is a no-op with applied=false. Returns ErrAlertNotFound for unknown
	// delivery references.
	ApplyFeedback(ctx context.Context, deliveryRef, sentiment string) (applied bool, err error)
	FindByDeliveryRef(ctx context.Context, deliveryRef string) (*entity.Alert, error)
	ListRecent(ctx context.Context, limit int) ([]entity.Alert, error)
	FeedbackStats(ctx context.Context) (*FeedbackStats, error)
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *entity.Alert) error {
	if alert.Feedback == "" {
		alert.Feedback = entity.FeedbackNone
	}
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("%w: insert alert: %v", dto.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *alertRepository) GetRecent(ctx context.Context, assetID string, limit int) ([]entity.Alert, error) {
	var alerts []entity.Alert
	err := r.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query recent alerts: %v", dto.ErrStoreUnavailable, err)
	}
	return alerts, nil
}

func (r *alertRepository) ApplyFeedback(ctx context.Context, deliveryRef, sentiment string) (bool, error) {
	// Single conditional update so the first feedback wins even under
	// concurrent duplicate events.
	res := r.db.WithContext(ctx).
		Model(&entity.Alert{}).
		Where("delivery_ref = ? AND feedback = ?", deliveryRef, entity.FeedbackNone).
		Updates(map[string]interface{}{
			"feedback":    sentiment,
			"feedback_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("%w: update alert feedback: %v", dto.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Nothing updated: either the alert already carries feedback or the
	// reference is unknown.
	if _, err := r.FindByDeliveryRef(ctx, deliveryRef); err != nil {
		return false, err
	}
	return false, nil
}

func (r *alertRepository) FindByDeliveryRef(ctx context.Context, deliveryRef string) (*entity.Alert, error) {
	var alert entity.Alert
	err := r.db.WithContext(ctx).Where("delivery_ref = ?", deliveryRef).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query alert by delivery ref: %v", dto.ErrStoreUnavailable, err)
	}
	return &alert, nil
}

func (r *alertRepository) ListRecent(ctx context.Context, limit int) ([]entity.Alert, error) {
	var alerts []entity.Alert
	err := r.db.WithContext(ctx).Order("sent_at DESC").Limit(limit).Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list alerts: %v", dto.ErrStoreUnavailable, err)
	}
	return alerts, nil
}

func (r *alertRepository) FeedbackStats(ctx context.Context) (*FeedbackStats, error) {
	var stats FeedbackStats
	err := r.db.WithContext(ctx).
		Model(&entity.Alert{}).
		Select(
			"COUNT(*) AS total, "+
				"COUNT(*) FILTER (WHERE feedback = ?) AS positive, "+
				"COUNT(*) FILTER (WHERE feedback = ?) AS negative",
			entity.FeedbackPositive, entity.FeedbackNegative).
		Where("feedback <> ?", entity.FeedbackNone).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("%w: feedback stats: %v", dto.ErrStoreUnavailable, err)
	}
	return &stats, nil
}
