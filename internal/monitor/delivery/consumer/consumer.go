package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"tradesignal/internal/monitor/dto"
	"tradesignal/internal/monitor/service"
	"tradesignal/pkg/common"
	"tradesignal/pkg/logger"
	"tradesignal/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	readBlock     = 5 * time.Second
	readCount     = 10
	retryInterval = 30 * time.Second
	// Events stay in the pending list until acked; anything idle longer
	// than this is reclaimed and folded again.
	retryMinIdle = time.Minute
)

// FeedbackConsumer drains the alert feedback stream and folds each event
// into its alert record, decoupled from the monitoring cycle.
type FeedbackConsumer struct {
	redisClient     *redis.Client
	feedbackService service.FeedbackService
	logger          *logger.Logger
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

// NewFeedbackConsumer creates a new FeedbackConsumer.
func NewFeedbackConsumer(redisClient *redis.Client, feedbackService service.FeedbackService, log *logger.Logger) *FeedbackConsumer {
	return &FeedbackConsumer{
		redisClient:     redisClient,
		feedbackService: feedbackService,
		logger:          log,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the consumer's processing loops.
func (c *FeedbackConsumer) Start(ctx context.Context) {
	c.logger.Info("Feedback consumer started", logger.StringField("stream", common.RedisStreamAlertFeedback))

	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Feedback consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Feedback consumer stopping")
				return
			default:
				c.processFeedback(ctx)
			}
		}
	})

	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		ticker := time.NewTicker(retryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.processRetries(ctx)
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			}
		}
	})
}

// Stop gracefully shuts down the consumer.
func (c *FeedbackConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Feedback consumer stopped")
}

func (c *FeedbackConsumer) processFeedback(ctx context.Context) {
	streams, err := c.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamAlertFeedback, ">"},
		Count:    readCount,
		Block:    readBlock,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("Failed to read feedback stream", logger.ErrorField(err))
		}
		return
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			c.handleMessage(ctx, message)
		}
	}
}

// processRetries reclaims feedback events whose previous processing never
// acked, typically because the store was unavailable.
func (c *FeedbackConsumer) processRetries(ctx context.Context) {
	messages, _, err := c.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   common.RedisStreamAlertFeedback,
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		MinIdle:  retryMinIdle,
		Start:    "0",
		Count:    readCount,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("Failed to claim pending feedback events", logger.ErrorField(err))
		}
		return
	}

	for _, message := range messages {
		c.handleMessage(ctx, message)
	}
}

func (c *FeedbackConsumer) handleMessage(ctx context.Context, message redis.XMessage) {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		c.logger.Warn("Dropping feedback message without payload", logger.StringField("message_id", message.ID))
		c.ack(ctx, message.ID)
		return
	}

	var event dto.FeedbackEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Warn("Dropping undecodable feedback message",
			logger.ErrorField(err),
			logger.StringField("message_id", message.ID),
		)
		c.ack(ctx, message.ID)
		return
	}

	if err := c.feedbackService.Fold(ctx, event); err != nil {
		// Leave the message pending so the retry loop picks it up once
		// the store is reachable again.
		c.logger.Error("Failed to fold feedback event, will retry",
			logger.ErrorField(err),
			logger.StringField("delivery_ref", event.DeliveryRef),
		)
		return
	}

	c.ack(ctx, message.ID)
}

func (c *FeedbackConsumer) ack(ctx context.Context, messageID string) {
	if err := c.redisClient.XAck(ctx, common.RedisStreamAlertFeedback, common.RedisStreamGroup, messageID).Err(); err != nil {
		c.logger.Error("Failed to ack feedback message",
			logger.ErrorField(err),
			logger.StringField("message_id", messageID),
		)
	}
}
