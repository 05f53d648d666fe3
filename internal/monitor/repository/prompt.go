package repository

import (
	"fmt"
	"strings"

	"tradesignal/internal/entity"
	"tradesignal/internal/monitor/dto"
)

// BuildAlertJudgmentPrompt renders the oracle context for one asset. The
// peer deltas come from the same cycle snapshot so the oracle can weigh
// correlated moves, but the verdict it returns is for this asset alone.
func BuildAlertJudgmentPrompt(octx *dto.OracleContext) string {
	var builder strings.Builder

	builder.WriteString("You are a crypto alerting assistant. Analyze this price movement:\n\n")
	builder.WriteString(fmt.Sprintf("%s: $%.2f (%+.2f%% since last check, %+.2f%% in 24h)\n",
		titleCase(octx.AssetID), octx.Price, octx.PctChange, octx.Trend24hPct))

	if len(octx.PeerDeltas) > 0 {
		builder.WriteString("\nOther assets in the same check:\n")
		for _, peer := range octx.PeerDeltas {
			builder.WriteString(fmt.Sprintf("- %s: $%.2f (%+.2f%% since last check, %+.2f%% in 24h)\n",
				titleCase(peer.AssetID), peer.CurrentPrice, peer.PctChange, peer.Trend24hPct))
		}
	}

	builder.WriteString("\n")
	builder.WriteString(formatFeedbackHistory(octx.FeedbackHistory))
	builder.WriteString("\n\n")

	builder.WriteString("Should I alert the user about this movement? Consider:\n")
	builder.WriteString("- Magnitude of the price change (only moves above the significance threshold reach you)\n")
	builder.WriteString("- Multiple assets moving together (correlation)\n")
	builder.WriteString("- The user's past feedback on similar alerts\n")
	builder.WriteString("- Whether the change is significant enough to warrant attention\n\n")

	builder.WriteString("Respond ONLY with valid JSON (no markdown, no code blocks):\n")
	builder.WriteString(`{"should_alert": true or false, "reason": "brief explanation", "confidence": 0.0 to 1.0}`)

	return builder.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatFeedbackHistory(history []dto.FeedbackRecord) string {
	if len(history) == 0 {
		return "No previous feedback available."
	}

	var helpful, notHelpful, pending int
	for _, record := range history {
		switch record.Feedback {
		case entity.FeedbackPositive:
			helpful++
		case entity.FeedbackNegative:
			notHelpful++
		default:
			pending++
		}
	}

	return fmt.Sprintf("User feedback on recent alerts:\n- Helpful: %d\n- Not helpful: %d\n- No response yet: %d",
		helpful, notHelpful, pending)
}
