// Package matrix implements chat.Client for Matrix homeservers.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/nerrad567/colorbridge/internal/chat"
)

// Config configures the Matrix client.
type Config struct {
	// Homeserver is the client-server API base URL.
	Homeserver string

	// Token is the access token of the bot account.
	Token string
}

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, keysAndValues ...any)
}

// Client is a Matrix chat.Client.
type Client struct {
	client *mautrix.Client
	syncer *mautrix.DefaultSyncer
	logger Logger
}

// Ensure Client implements chat.Client.
var _ chat.Client = (*Client)(nil)

// terminalSyncer stops syncing on the first failed request instead of
// retrying, so a broken stream surfaces to the caller.
type terminalSyncer struct {
	*mautrix.DefaultSyncer
}

func (terminalSyncer) OnFailedSync(_ *mautrix.RespSync, err error) (time.Duration, error) {
	return 0, err
}

// Connect creates a client and resolves the account the token belongs to.
// An invalid token or unreachable homeserver fails here rather than later.
func Connect(ctx context.Context, cfg Config, logger Logger) (*Client, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, "", cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("matrix client: %w", err)
	}

	whoami, err := client.Whoami(ctx)
	if err != nil {
		return nil, fmt.Errorf("matrix whoami: %w", err)
	}
	client.UserID = whoami.UserID

	if logger != nil {
		logger.Info("matrix client ready", "user_id", whoami.UserID.String(), "homeserver", cfg.Homeserver)
	}

	return newClient(client, logger), nil
}

func newClient(client *mautrix.Client, logger Logger) *Client {
	syncer := mautrix.NewDefaultSyncer()
	client.Syncer = terminalSyncer{syncer}
	return &Client{client: client, syncer: syncer, logger: logger}
}

// Name implements chat.Client.
func (c *Client) Name() string { return "matrix" }

// Listen syncs with the homeserver until ctx ends or a sync request fails.
// The initial sync is dropped, so only events newer than startup are delivered.
func (c *Client) Listen(ctx context.Context, events chan<- chat.Event) error {
	c.registerHandlers(events)

	if c.logger != nil {
		c.logger.Info("matrix sync started", "user_id", c.client.UserID.String())
	}

	err := c.client.SyncWithContext(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = errors.New("sync stopped")
	}
	return fmt.Errorf("%w: %w", chat.ErrStreamFailed, err)
}

func (c *Client) registerHandlers(events chan<- chat.Event) {
	c.syncer.OnSync(skipInitialSync)
	c.syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		chat.Deliver(ctx, events, toChatEvent(evt))
	})
}

// skipInitialSync stops processing of the first sync response, which
// replays recent room history. Later responses carry a since token.
func skipInitialSync(_ context.Context, _ *mautrix.RespSync, since string) bool {
	return since != ""
}

// toChatEvent maps a Matrix room event onto the backend-neutral form.
func toChatEvent(evt *event.Event) chat.Event {
	out := chat.Event{
		Kind:       chat.KindOther,
		Type:       evt.Type.Type,
		Room:       evt.RoomID.String(),
		Sender:     evt.Sender.String(),
		ReceivedAt: time.UnixMilli(evt.Timestamp),
	}
	if evt.Type.Type == event.EventMessage.Type {
		out.Kind = chat.KindMessage
		if msg := evt.Content.AsMessage(); msg != nil {
			out.Body = msg.Body
		}
	}
	return out
}

// UploadPhoto stores the photo in the homeserver's media repository.
func (c *Client) UploadPhoto(ctx context.Context, photo chat.Photo) (chat.UploadedPhoto, error) {
	resp, err := c.client.UploadBytesWithName(ctx, photo.Data, photo.ContentType, photo.Name)
	if err != nil {
		return chat.UploadedPhoto{}, fmt.Errorf("%w: %w", chat.ErrUploadFailed, err)
	}

	return chat.UploadedPhoto{
		URI:         string(resp.ContentURI.CUString()),
		Name:        photo.Name,
		ContentType: photo.ContentType,
		Size:        len(photo.Data),
		Width:       photo.Width,
		Height:      photo.Height,
	}, nil
}

// SendPhoto posts an m.image message referencing an uploaded photo.
func (c *Client) SendPhoto(ctx context.Context, room string, photo chat.UploadedPhoto) error {
	if room == "" {
		return fmt.Errorf("%w: empty room id", chat.ErrInvalidRoom)
	}

	_, err := c.client.SendMessageEvent(ctx, id.RoomID(room), event.EventMessage, imageContent(photo))
	if err != nil {
		return fmt.Errorf("%w: %w", chat.ErrSendFailed, err)
	}
	return nil
}

func imageContent(photo chat.UploadedPhoto) *event.MessageEventContent {
	return &event.MessageEventContent{
		MsgType: event.MsgImage,
		Body:    photo.Name,
		URL:     id.ContentURIString(photo.URI),
		Info: &event.FileInfo{
			MimeType: photo.ContentType,
			Size:     photo.Size,
			Width:    photo.Width,
			Height:   photo.Height,
		},
	}
}

// Close stops a running sync.
func (c *Client) Close() error {
	c.client.StopSync()
	return nil
}
