package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/colorcmd"
)

const defaultEventBuffer = 64

// ConsumerStats holds operational counters.
type ConsumerStats struct {
	Messages uint64 `json:"messages"`
	Queued   uint64 `json:"queued"`
	Rejected uint64 `json:"rejected"`
}

// Consumer turns chat messages into queued colour commands.
type Consumer struct {
	client   chat.Client
	parser   colorcmd.Parser
	commands *Queue[ColorCommand]
	buffer   int
	logger   Logger

	messages atomic.Uint64
	queued   atomic.Uint64
	rejected atomic.Uint64
}

// NewConsumer creates a consumer reading from client. buffer sizes the
// channel between the backend and the consumer.
func NewConsumer(client chat.Client, parser colorcmd.Parser, commands *Queue[ColorCommand], buffer int, logger Logger) *Consumer {
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	return &Consumer{
		client:   client,
		parser:   parser,
		commands: commands,
		buffer:   buffer,
		logger:   orNop(logger),
	}
}

// Run listens to the chat stream until it ends. A stream failure is
// returned as is; a command that cannot be queued is fatal. The command
// queue is closed on return.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.commands.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan chat.Event, c.buffer)
	listenErr := make(chan error, 1)
	go func() {
		listenErr <- c.client.Listen(ctx, events)
	}()

	c.logger.Info("listening for colour commands", "backend", c.client.Name(), "prefix", c.parser.Prefix())

	for {
		select {
		case evt := <-events:
			if err := c.handle(evt); err != nil {
				return err
			}

		case err := <-listenErr:
			// Events already buffered were received before the stream ended.
			if drainErr := c.drain(events); drainErr != nil {
				return drainErr
			}
			if err != nil {
				c.logger.Error("chat stream ended", "backend", c.client.Name(), "error", err)
				return err
			}
			c.logger.Info("chat stream closed", "backend", c.client.Name())
			return nil
		}
	}
}

func (c *Consumer) drain(events <-chan chat.Event) error {
	for {
		select {
		case evt := <-events:
			if err := c.handle(evt); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// handle processes one event. Only a failed push is returned.
func (c *Consumer) handle(evt chat.Event) error {
	if !evt.IsMessage() {
		return nil
	}
	c.messages.Add(1)
	c.logger.Info("message received", "room", evt.Room, "sender", evt.Sender, "body", evt.Body)

	color, err := c.parser.Parse(evt.Body)
	if errors.Is(err, colorcmd.ErrNotCommand) {
		return nil
	}
	if err != nil {
		c.rejected.Add(1)
		c.logger.Warn("ignoring colour command", "room", evt.Room, "error", err)
		return nil
	}

	cmd := ColorCommand{
		ID:         uuid.New(),
		Room:       evt.Room,
		Color:      color,
		ReceivedAt: evt.ReceivedAt,
	}
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = timeNow()
	}

	if err := c.commands.Push(cmd); err != nil {
		return fmt.Errorf("queue colour command: %w", err)
	}
	c.queued.Add(1)
	c.logger.Debug("colour command queued", "command_id", cmd.ID.String(), "color", color.Hex(), "depth", c.commands.Len())
	return nil
}

// Stats returns current counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Messages: c.messages.Load(),
		Queued:   c.queued.Load(),
		Rejected: c.rejected.Load(),
	}
}
