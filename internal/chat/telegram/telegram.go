// Package telegram implements chat.Client for the Telegram Bot API.
//
// Rooms are Telegram chat IDs in decimal. Telegram has no separate media
// store: UploadPhoto keeps the encoded bytes and SendPhoto uploads them as
// part of sendPhoto.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nerrad567/colorbridge/internal/chat"
)

const defaultPollTimeout = 10

// Config configures the Telegram client.
type Config struct {
	Token string

	// Endpoint overrides the Bot API endpoint, e.g. for a local Bot API
	// server. A bare base URL gets "/bot%s/%s" appended.
	Endpoint string

	// PollTimeout is the long-poll timeout in seconds. Default: 10
	PollTimeout int
}

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, keysAndValues ...any)
}

// botAPI is the subset of tgbotapi.BotAPI the client uses.
type botAPI interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client is a Telegram chat.Client.
type Client struct {
	bot         botAPI
	pollTimeout int
	logger      Logger
}

// Ensure Client implements chat.Client.
var _ chat.Client = (*Client)(nil)

// Connect authenticates the bot token with getMe.
func Connect(cfg Config, logger Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	if logger != nil {
		logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	}

	return newClient(bot, cfg.PollTimeout, logger), nil
}

func newClient(bot botAPI, pollTimeout int, logger Logger) *Client {
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	return &Client{bot: bot, pollTimeout: pollTimeout, logger: logger}
}

func endpoint(s string) string {
	if s == "" {
		return tgbotapi.APIEndpoint
	}
	if strings.Contains(s, "%s") {
		return s
	}
	return strings.TrimRight(s, "/") + "/bot%s/%s"
}

// Name implements chat.Client.
func (c *Client) Name() string { return "telegram" }

// Listen long-polls for updates. Updates pending at startup are
// acknowledged and skipped.
//
// The Bot API client is not context-aware: after ctx ends, Listen returns
// at once and the poller exits when its in-flight request completes.
func (c *Client) Listen(ctx context.Context, events chan<- chat.Event) error {
	offset, err := c.skipBacklog()
	if err != nil {
		return fmt.Errorf("%w: %w", chat.ErrStreamFailed, err)
	}

	if c.logger != nil {
		c.logger.Info("telegram polling started", "offset", offset)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- c.poll(ctx, offset, events)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
}

// skipBacklog returns the offset just past the newest pending update.
func (c *Client) skipBacklog() (int, error) {
	pending, err := c.bot.GetUpdates(tgbotapi.UpdateConfig{Offset: -1, Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("reading pending updates: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return pending[len(pending)-1].UpdateID + 1, nil
}

func (c *Client) poll(ctx context.Context, offset int, events chan<- chat.Event) error {
	u := tgbotapi.NewUpdate(offset)
	u.Timeout = c.pollTimeout

	for ctx.Err() == nil {
		updates, err := c.bot.GetUpdates(u)
		if err != nil {
			return fmt.Errorf("%w: %w", chat.ErrStreamFailed, err)
		}

		for _, update := range updates {
			if update.UpdateID >= u.Offset {
				u.Offset = update.UpdateID + 1
			}
			evt, ok := toChatEvent(update)
			if !ok {
				continue
			}
			if !chat.Deliver(ctx, events, evt) {
				return nil
			}
		}
	}
	return nil
}

// toChatEvent maps a message update. Other update types are skipped.
func toChatEvent(update tgbotapi.Update) (chat.Event, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return chat.Event{}, false
	}

	body := msg.Text
	if body == "" {
		body = msg.Caption
	}

	sender := ""
	if msg.From != nil {
		sender = msg.From.UserName
		if sender == "" {
			sender = strconv.FormatInt(msg.From.ID, 10)
		}
	}

	return chat.Event{
		Kind:       chat.KindMessage,
		Type:       "message",
		Room:       strconv.FormatInt(msg.Chat.ID, 10),
		Sender:     sender,
		Body:       body,
		ReceivedAt: msg.Time(),
	}, true
}

// UploadPhoto stages the photo; the bytes are sent by SendPhoto.
func (c *Client) UploadPhoto(_ context.Context, photo chat.Photo) (chat.UploadedPhoto, error) {
	if len(photo.Data) == 0 {
		return chat.UploadedPhoto{}, fmt.Errorf("%w: empty photo", chat.ErrUploadFailed)
	}
	return chat.UploadedPhoto{
		Name:        photo.Name,
		ContentType: photo.ContentType,
		Size:        len(photo.Data),
		Width:       photo.Width,
		Height:      photo.Height,
		Data:        photo.Data,
	}, nil
}

// SendPhoto posts the photo to the chat identified by room.
func (c *Client) SendPhoto(_ context.Context, room string, photo chat.UploadedPhoto) error {
	chatID, err := strconv.ParseInt(room, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a telegram chat id", chat.ErrInvalidRoom, room)
	}

	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: photo.Name, Bytes: photo.Data})
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("%w: %w", chat.ErrSendFailed, err)
	}
	return nil
}

// Close is a no-op; polling stops with the Listen context.
func (c *Client) Close() error {
	return nil
}
