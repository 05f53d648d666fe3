package entity

import (
	"time"
)

// Alert feedback values. Feedback starts at none and transitions at most
// once to positive or negative; the first write wins.
const (
	FeedbackNone     = "none"
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// Alert is created only after a notification was confirmed delivered. The
// DeliveryRef correlates asynchronous user feedback back to this record.
type Alert struct {
	ID          int64      `json:"id"`
	DecisionID  *int64     `json:"decision_id"`
	AssetID     string     `json:"asset_id" gorm:"index"`
	Price       float64    `json:"price"`
	PctChange   float64    `json:"pct_change"`
	Reason      string     `json:"reason"`
	Confidence  float64    `json:"confidence"`
	DeliveryRef string     `json:"delivery_ref" gorm:"uniqueIndex"`
	SentAt      time.Time  `json:"sent_at"`
	Feedback    string     `json:"feedback" gorm:"default:none"`
	FeedbackAt  *time.Time `json:"feedback_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}
