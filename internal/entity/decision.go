package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Decision is the recorded verdict for one asset in one cycle where the
// significance gate fired. It is a historical record and is never edited,
// including when the verdict came from an oracle failure fallback.
// OracleContext snapshots the exact input the oracle judged (peer deltas
// and feedback history included), so every verdict is auditable on its own.
type Decision struct {
	ID            int64          `json:"id"`
	AssetID       string         `json:"asset_id" gorm:"index"`
	ObservedAt    time.Time      `json:"observed_at"`
	PctChange     float64        `json:"pct_change"`
	ShouldAlert   bool           `json:"should_alert"`
	Reason        string         `json:"reason"`
	Confidence    float64        `json:"confidence"`
	OracleContext datatypes.JSON `json:"oracle_context" gorm:"type:jsonb"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Decision) TableName() string {
	return "decisions"
}
