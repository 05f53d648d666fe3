package dto

import "time"

// PriceQuote is a point-in-time quote returned by the price source.
type PriceQuote struct {
	AssetID     string
	Price       float64
	Trend24hPct float64
	ObservedAt  time.Time
}

// PriceDelta is the movement of one asset between its two most recent
// samples. Deltas are derived per cycle; they are persisted only as part of
// the oracle context snapshot on decision records.
type PriceDelta struct {
	AssetID       string    `json:"asset_id"`
	PreviousPrice float64   `json:"previous_price"`
	CurrentPrice  float64   `json:"current_price"`
	PctChange     float64   `json:"pct_change"`
	Trend24hPct   float64   `json:"trend_24h_pct"`
	ObservedAt    time.Time `json:"observed_at"`
}
