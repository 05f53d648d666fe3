package dto

// FeedbackRecord is one past alert outcome included in the oracle context.
type FeedbackRecord struct {
	AssetID    string  `json:"asset_id"`
	PctChange  float64 `json:"pct_change"`
	Confidence float64 `json:"confidence"`
	Feedback   string  `json:"feedback"`
}

// OracleContext is everything the judgment oracle sees for one asset:
// the asset's own movement, the other assets' deltas from the same cycle
// snapshot, and the user's recent feedback history. It is also snapshotted
// verbatim onto the decision record.
type OracleContext struct {
	AssetID         string           `json:"asset_id"`
	Price           float64          `json:"price"`
	PctChange       float64          `json:"pct_change"`
	Trend24hPct     float64          `json:"trend_24h_pct"`
	PeerDeltas      []PriceDelta     `json:"peer_deltas"`
	FeedbackHistory []FeedbackRecord `json:"feedback_history"`
}

// OracleDecision is the structured verdict parsed from the oracle response.
type OracleDecision struct {
	ShouldAlert bool    `json:"should_alert"`
	Reason      string  `json:"reason"`
	Confidence  float64 `json:"confidence"`
}
