package telegram

import (
	"testing"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackCallbackRoundTrip(t *testing.T) {
	data := EncodeFeedbackCallback("550e8400-e29b-41d4-a716-446655440000", entity.FeedbackPositive)
	// Telegram rejects callback data over 64 bytes.
	assert.LessOrEqual(t, len(data), 64)

	ref, sentiment, err := ParseFeedbackCallback(data)
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", ref)
	assert.Equal(t, entity.FeedbackPositive, sentiment)
}

func TestParseFeedbackCallbackRejectsForeignData(t *testing.T) {
	_, _, err := ParseFeedbackCallback("other:abc:positive")
	assert.Error(t, err)

	_, _, err = ParseFeedbackCallback("feedback:abc")
	assert.Error(t, err)
}

func TestParseFeedbackCallbackRejectsUnknownSentiment(t *testing.T) {
	_, _, err := ParseFeedbackCallback("feedback:abc:maybe")
	assert.Error(t, err)
}

func TestFormatAlertMessage(t *testing.T) {
	msg := FormatAlertMessage(&dto.AlertPayload{
		AssetID:    "bitcoin",
		Price:      63123.5,
		PctChange:  4.25,
		Reason:     "sharp correlated move",
		Confidence: 0.9,
	})

	assert.Contains(t, msg, "₿ Bitcoin Alert!")
	assert.Contains(t, msg, "$63123.50")
	assert.Contains(t, msg, "📈 +4.25%")
	assert.Contains(t, msg, "Confidence: 90%")
	assert.Contains(t, msg, "sharp correlated move")
}

func TestFormatAlertMessageNegativeChange(t *testing.T) {
	msg := FormatAlertMessage(&dto.AlertPayload{
		AssetID:   "dogecoin",
		Price:     0.12,
		PctChange: -6.1,
	})

	assert.Contains(t, msg, "🚀 Dogecoin Alert!")
	assert.Contains(t, msg, "📉 -6.10%")
}

func TestFormatStartupMessage(t *testing.T) {
	msg := FormatStartupMessage([]string{"bitcoin", "ethereum"}, "@every 10m")
	assert.Contains(t, msg, "Bitcoin, Ethereum")
	assert.Contains(t, msg, "@every 10m")
}
