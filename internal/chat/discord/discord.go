// Package discord implements chat.Client for Discord bots.
//
// Rooms are Discord channel IDs. The gateway connection is opened by
// Connect; discordgo resumes dropped sessions on its own, so Listen only
// ends with its context.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/nerrad567/colorbridge/internal/chat"
)

// Config configures the Discord client.
type Config struct {
	Token string
}

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, keysAndValues ...any)
}

// Client is a Discord chat.Client.
type Client struct {
	session *discordgo.Session
	logger  Logger

	closeOnce sync.Once
	closeErr  error
}

// Ensure Client implements chat.Client.
var _ chat.Client = (*Client)(nil)

// Connect opens the Discord gateway session.
func Connect(cfg Config, logger Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord connect: %w", err)
	}

	if logger != nil {
		logger.Info("discord bot connected", "user", session.State.User.Username)
	}

	return &Client{session: session, logger: logger}, nil
}

// Name implements chat.Client.
func (c *Client) Name() string { return "discord" }

// Listen delivers messages created after the call until ctx ends.
func (c *Client) Listen(ctx context.Context, events chan<- chat.Event) error {
	remove := c.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		selfID := ""
		if s.State != nil && s.State.User != nil {
			selfID = s.State.User.ID
		}
		if evt, ok := toChatEvent(m, selfID); ok {
			chat.Deliver(ctx, events, evt)
		}
	})
	defer remove()

	<-ctx.Done()
	return nil
}

// toChatEvent maps a created message, skipping the bot's own posts.
func toChatEvent(m *discordgo.MessageCreate, selfID string) (chat.Event, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return chat.Event{}, false
	}
	if selfID != "" && m.Author.ID == selfID {
		return chat.Event{}, false
	}

	return chat.Event{
		Kind:       chat.KindMessage,
		Type:       "message_create",
		Room:       m.ChannelID,
		Sender:     m.Author.Username,
		Body:       m.Content,
		ReceivedAt: m.Timestamp,
	}, true
}

// UploadPhoto stages the photo; Discord takes attachments with the message.
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

// SendPhoto posts the photo as an attachment in channel room.
func (c *Client) SendPhoto(ctx context.Context, room string, photo chat.UploadedPhoto) error {
	if room == "" {
		return fmt.Errorf("%w: empty channel id", chat.ErrInvalidRoom)
	}

	if _, err := c.session.ChannelMessageSendComplex(room, photoMessage(photo), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", chat.ErrSendFailed, err)
	}
	return nil
}

func photoMessage(photo chat.UploadedPhoto) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Files: []*discordgo.File{{
			Name:        photo.Name,
			ContentType: photo.ContentType,
			Reader:      bytes.NewReader(photo.Data),
		}},
	}
}

// Close closes the gateway session.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.session.Close()
	})
	return c.closeErr
}
