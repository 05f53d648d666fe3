package common

const (
	RedisStreamAlertFeedback = "alert.feedback"

	RedisStreamGroup    = "monitor-group"
	RedisStreamConsumer = "monitor-consumer"
)
