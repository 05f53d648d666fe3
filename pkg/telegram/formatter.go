package telegram

import (
	"fmt"
	"strings"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const feedbackCallbackPrefix = "feedback"

var assetGlyphs = map[string]string{
	"bitcoin":  "₿",
	"ethereum": "Ξ",
	"solana":   "◎",
}

// FormatAlertMessage renders one alert for Telegram.
func FormatAlertMessage(payload *dto.AlertPayload) string {
	glyph, ok := assetGlyphs[payload.AssetID]
	if !ok {
		glyph = "🚀"
	}
	trendIcon := "📈"
	if payload.PctChange < 0 {
		trendIcon = "📉"
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s %s Alert!\n\n", glyph, capitalize(payload.AssetID)))
	builder.WriteString(fmt.Sprintf("Price: $%.2f\n", payload.Price))
	builder.WriteString(fmt.Sprintf("Change: %s %+.2f%% since last check\n", trendIcon, payload.PctChange))
	builder.WriteString(fmt.Sprintf("Confidence: %.0f%%\n\n", payload.Confidence*100))
	builder.WriteString(fmt.Sprintf("Reason: %s", payload.Reason))
	return builder.String()
}

// FormatStartupMessage renders the announcement sent when the monitor
// starts.
func FormatStartupMessage(assets []string, schedule string) string {
	names := make([]string, 0, len(assets))
	for _, asset := range assets {
		names = append(names, capitalize(asset))
	}
	return fmt.Sprintf("🚀 TradeSignal Monitor started!\n\nWatching %s on schedule %q.",
		strings.Join(names, ", "), schedule)
}

// FormatFeedbackAck renders the confirmation appended to an alert after the
// user pressed a feedback button.
func FormatFeedbackAck(sentiment string) string {
	if sentiment == entity.FeedbackPositive {
		return "👍 Thanks for the feedback!"
	}
	return "👎 Thanks for the feedback!"
}

// EncodeFeedbackCallback builds the callback data carried by one feedback
// button. Telegram limits callback data to 64 bytes; prefix, uuid and
// sentiment fit within that.
func EncodeFeedbackCallback(deliveryRef, sentiment string) string {
	return strings.Join([]string{feedbackCallbackPrefix, deliveryRef, sentiment}, ":")
}

// ParseFeedbackCallback is the inverse of EncodeFeedbackCallback.
func ParseFeedbackCallback(data string) (deliveryRef, sentiment string, err error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != feedbackCallbackPrefix {
		return "", "", fmt.Errorf("not a feedback callback: %q", data)
	}
	if parts[2] != entity.FeedbackPositive && parts[2] != entity.FeedbackNegative {
		return "", "", fmt.Errorf("unknown feedback sentiment: %q", parts[2])
	}
	return parts[1], parts[2], nil
}

func buildFeedbackKeyboard(deliveryRef string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍 Helpful", EncodeFeedbackCallback(deliveryRef, entity.FeedbackPositive)),
			tgbotapi.NewInlineKeyboardButtonData("👎 Not helpful", EncodeFeedbackCallback(deliveryRef, entity.FeedbackNegative)),
		),
	)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
