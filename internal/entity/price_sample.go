package entity

import (
	"time"
)

// PriceSample is a single observation of an asset's price. Samples are
// immutable once recorded; one is written per asset per monitoring cycle.
type PriceSample struct {
	ID          int64     `json:"id"`
	AssetID     string    `json:"asset_id" gorm:"index:idx_price_samples_asset_observed,priority:1"`
	Price       float64   `json:"price"`
	Trend24hPct float64   `json:"trend_24h_pct"`
	ObservedAt  time.Time `json:"observed_at" gorm:"index:idx_price_samples_asset_observed,priority:2"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PriceSample) TableName() string {
	return "price_samples"
}
