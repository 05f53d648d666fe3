package service

import (
	"context"
	"errors"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"
	"tradesignal/internal/monitor/repository"
	"tradesignal/pkg/logger"
)

// FeedbackService folds inbound feedback events into alert records. It is
// the only writer of an alert after its creation.
type FeedbackService interface {
	Fold(ctx context.Context, event dto.FeedbackEvent) error
}

type feedbackService struct {
	log    *logger.Logger
	alerts repository.AlertRepository
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(log *logger.Logger, alerts repository.AlertRepository) FeedbackService {
	return &feedbackService{log: log, alerts: alerts}
}

// Fold resolves the event to exactly one alert via its delivery reference
// and applies the feedback transition if the alert has none yet. Duplicate
// events keep the first sentiment; unknown references are logged and
// discarded. Only store outages are reported as errors so the consumer can
// retry the event.
func (s *feedbackService) Fold(ctx context.Context, event dto.FeedbackEvent) error {
	if event.Sentiment != entity.FeedbackPositive && event.Sentiment != entity.FeedbackNegative {
		s.log.Warn("Discarding feedback event with invalid sentiment",
			logger.StringField("delivery_ref", event.DeliveryRef),
			logger.StringField("sentiment", event.Sentiment),
		)
		return nil
	}

	applied, err := s.alerts.ApplyFeedback(ctx, event.DeliveryRef, event.Sentiment)
	if errors.Is(err, repository.ErrAlertNotFound) {
		s.log.Warn("Discarding feedback event for unknown delivery reference",
			logger.StringField("delivery_ref", event.DeliveryRef),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if !applied {
		s.log.DebugContext(ctx, "Duplicate feedback event ignored, first write wins",
			logger.StringField("delivery_ref", event.DeliveryRef),
			logger.StringField("sentiment", event.Sentiment),
		)
		return nil
	}

	s.log.InfoContext(ctx, "Applied alert feedback",
		logger.StringField("delivery_ref", event.DeliveryRef),
		logger.StringField("sentiment", event.Sentiment),
	)
	return nil
}
