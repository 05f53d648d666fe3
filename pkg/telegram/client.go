package telegram

import (
	"context"
	"fmt"
	"time"

	"tradesignal/internal/monitor/dto"
	"tradesignal/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Notifier delivers formatted alerts to the configured chat. SendAlert
// returns the delivery reference that later correlates user feedback back
// to the alert.
type Notifier interface {
	SendAlert(ctx context.Context, payload *dto.AlertPayload) (string, error)
	AnnounceStartup(assets []string, schedule string) error
}

// FeedbackPublisher receives the feedback events extracted from button
// callbacks. The client stays transport-only; queuing is the publisher's
// concern.
type FeedbackPublisher func(ctx context.Context, event dto.FeedbackEvent) error

// Client is a Telegram implementation of Notifier that also long-polls for
// the feedback button callbacks attached to its alerts.
type Client struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	log     *logger.Logger
	publish FeedbackPublisher
	// Telegram re-delivers callback queries that were not answered in
	// time; seenCallbacks keeps the handler from publishing them twice.
	seenCallbacks *cache.Cache
}

// NewClient creates a new Telegram client.
func NewClient(botToken string, chatID int64, log *logger.Logger, publish FeedbackPublisher) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Client{
		bot:           bot,
		chatID:        chatID,
		log:           log,
		publish:       publish,
		seenCallbacks: cache.New(10*time.Minute, 30*time.Minute),
	}, nil
}

// SendAlert sends one alert message with inline feedback buttons. The
// returned delivery reference is embedded in the button callback data
// before sending, so the alert can be correlated even though the alert
// record does not exist yet.
func (c *Client) SendAlert(ctx context.Context, payload *dto.AlertPayload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrDeliveryFailed, err)
	}

	deliveryRef := uuid.NewString()

	msg := tgbotapi.NewMessage(c.chatID, FormatAlertMessage(payload))
	msg.ReplyMarkup = buildFeedbackKeyboard(deliveryRef)

	if _, err := c.bot.Send(msg); err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrDeliveryFailed, err)
	}
	return deliveryRef, nil
}

// AnnounceStartup posts a short message so the user knows monitoring has
// begun.
func (c *Client) AnnounceStartup(assets []string, schedule string) error {
	msg := tgbotapi.NewMessage(c.chatID, FormatStartupMessage(assets, schedule))
	_, err := c.bot.Send(msg)
	return err
}

// ListenFeedback long-polls Telegram updates and publishes feedback events
// for every press of an alert's feedback buttons. It blocks until the
// context is canceled.
func (c *Client) ListenFeedback(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := c.bot.GetUpdatesChan(updateCfg)

	c.log.Info("Telegram feedback listener started")

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.log.Info("Telegram feedback listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.log.Info("Telegram updates channel closed")
				return
			}
			if update.CallbackQuery == nil {
				continue
			}
			c.handleCallback(ctx, update.CallbackQuery)
		}
	}
}

func (c *Client) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Always answer, even for callbacks we end up ignoring; otherwise the
	// user's client shows a spinner until Telegram gives up.
	if _, err := c.bot.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		c.log.Warn("Failed to answer callback query", logger.ErrorField(err))
	}

	deliveryRef, sentiment, err := ParseFeedbackCallback(query.Data)
	if err != nil {
		c.log.Debug("Ignoring unrecognized callback data", logger.StringField("data", query.Data))
		return
	}

	if _, dup := c.seenCallbacks.Get(query.ID); dup {
		return
	}
	c.seenCallbacks.Set(query.ID, struct{}{}, cache.DefaultExpiration)

	event := dto.FeedbackEvent{DeliveryRef: deliveryRef, Sentiment: sentiment}
	if err := c.publish(ctx, event); err != nil {
		c.log.Error("Failed to publish feedback event",
			logger.ErrorField(err),
			logger.StringField("delivery_ref", deliveryRef),
		)
		return
	}

	c.log.Info("Received alert feedback",
		logger.StringField("delivery_ref", deliveryRef),
		logger.StringField("sentiment", sentiment),
	)

	if query.Message != nil {
		edited := tgbotapi.NewEditMessageText(
			query.Message.Chat.ID,
			query.Message.MessageID,
			query.Message.Text+"\n\n"+FormatFeedbackAck(sentiment),
		)
		if _, err := c.bot.Send(edited); err != nil {
			c.log.Warn("Failed to edit alert message after feedback", logger.ErrorField(err))
		}
	}
}
