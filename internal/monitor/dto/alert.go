package dto

// AlertPayload is the formatted-alert input handed to the notification
// channel.
type AlertPayload struct {
	AssetID    string
	Price      float64
	PctChange  float64
	Reason     string
	Confidence float64
}

// FeedbackEvent is an inbound accept/reject signal emitted by the
// notification channel, correlated to an alert by its delivery reference.
type FeedbackEvent struct {
	DeliveryRef string `json:"delivery_ref"`
	Sentiment   string `json:"sentiment"`
}
