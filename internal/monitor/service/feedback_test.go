package service

import (
	"context"
	"testing"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"
	"tradesignal/internal/monitor/repository"
	"tradesignal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newFeedbackFixture(t *testing.T) (*MockAlertRepository, FeedbackService) {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	alerts := new(MockAlertRepository)
	return alerts, NewFeedbackService(log, alerts)
}

func TestFoldAppliesValidFeedback(t *testing.T) {
	alerts, svc := newFeedbackFixture(t)

	alerts.On("ApplyFeedback", mock.Anything, "ref-1", entity.FeedbackPositive).Return(true, nil)

	err := svc.Fold(context.Background(), dto.FeedbackEvent{DeliveryRef: "ref-1", Sentiment: entity.FeedbackPositive})
	require.NoError(t, err)
	alerts.AssertExpectations(t)
}

func TestFoldDiscardsInvalidSentiment(t *testing.T) {
	alerts, svc := newFeedbackFixture(t)

	err := svc.Fold(context.Background(), dto.FeedbackEvent{DeliveryRef: "ref-1", Sentiment: "meh"})
	require.NoError(t, err)
	alerts.AssertNotCalled(t, "ApplyFeedback", mock.Anything, mock.Anything, mock.Anything)
}

func TestFoldDiscardsUnknownDeliveryRef(t *testing.T) {
	alerts, svc := newFeedbackFixture(t)

	alerts.On("ApplyFeedback", mock.Anything, "ghost", entity.FeedbackNegative).
		Return(false, repository.ErrAlertNotFound)

	err := svc.Fold(context.Background(), dto.FeedbackEvent{DeliveryRef: "ghost", Sentiment: entity.FeedbackNegative})
	assert.NoError(t, err)
}

func TestFoldDuplicateIsNoOp(t *testing.T) {
	alerts, svc := newFeedbackFixture(t)

	alerts.On("ApplyFeedback", mock.Anything, "ref-1", entity.FeedbackNegative).Return(false, nil)

	err := svc.Fold(context.Background(), dto.FeedbackEvent{DeliveryRef: "ref-1", Sentiment: entity.FeedbackNegative})
	assert.NoError(t, err)
}

func TestFoldPropagatesStoreOutageForRetry(t *testing.T) {
	alerts, svc := newFeedbackFixture(t)

	alerts.On("ApplyFeedback", mock.Anything, "ref-1", entity.FeedbackPositive).
		Return(false, dto.ErrStoreUnavailable)

	err := svc.Fold(context.Background(), dto.FeedbackEvent{DeliveryRef: "ref-1", Sentiment: entity.FeedbackPositive})
	assert.ErrorIs(t, err, dto.ErrStoreUnavailable)
}
