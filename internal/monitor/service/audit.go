package service

import (
	"context"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/repository"
)

// AuditService exposes the persisted monitoring history for inspection.
type AuditService interface {
	RecentSamples(ctx context.Context, assetID string, limit int) ([]entity.PriceSample, error)
	RecentDecisions(ctx context.Context, limit int) ([]entity.Decision, error)
	RecentAlerts(ctx context.Context, limit int) ([]entity.Alert, error)
	FeedbackStats(ctx context.Context) (*repository.FeedbackStats, error)
}

type auditService struct {
	samples   repository.PriceSampleRepository
	decisions repository.DecisionRepository
	alerts    repository.AlertRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(samples repository.PriceSampleRepository, decisions repository.DecisionRepository, alerts repository.AlertRepository) AuditService {
	return &auditService{samples: samples, decisions: decisions, alerts: alerts}
}

func (s *auditService) RecentSamples(ctx context.Context, assetID string, limit int) ([]entity.PriceSample, error) {
	return s.samples.ListRecent(ctx, assetID, limit)
}

func (s *auditService) RecentDecisions(ctx context.Context, limit int) ([]entity.Decision, error) {
	return s.decisions.ListRecent(ctx, limit)
}

func (s *auditService) RecentAlerts(ctx context.Context, limit int) ([]entity.Alert, error) {
	return s.alerts.ListRecent(ctx, limit)
}

func (s *auditService) FeedbackStats(ctx context.Context) (*repository.FeedbackStats, error) {
	return s.alerts.FeedbackStats(ctx)
}
