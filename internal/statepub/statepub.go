// Package statepub mirrors the light's applied colour and posted frames
// to MQTT.
//
// Notifications arrive on the hardware controller's goroutine, so they are
// queued without blocking and published from Run. When the queue is full
// the notification is dropped; the next colour overwrites the retained
// state anyway.
package statepub

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/nerrad567/colorbridge/internal/bridge"
	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/gateway"
	"github.com/nerrad567/colorbridge/internal/infrastructure/mqtt"
)

const defaultBuffer = 16

// Publisher is the part of the MQTT client used here.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Topics() mqtt.Topics
}

// Logger interface for optional logging.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// LightState is the retained payload on the light's state topic.
type LightState struct {
	CommandID string   `json:"command_id"`
	Room      string   `json:"room,omitempty"`
	Color     string   `json:"color"`
	RGBW      [4]uint8 `json:"rgbw"`
	AppliedAt string   `json:"applied_at"`
}

// FramePosted is the payload announcing a frame posted to chat.
type FramePosted struct {
	CommandID string `json:"command_id"`
	Room      string `json:"room"`
	URI       string `json:"uri,omitempty"`
	Size      int    `json:"size"`
	PostedAt  string `json:"posted_at"`
}

type message struct {
	topic    string
	payload  []byte
	retained bool
}

// Stats holds publish counters.
type Stats struct {
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"` // queue full
	Failed    uint64 `json:"failed"`  // encode or publish error
}

// StatePublisher implements bridge.StateObserver and bridge.FrameObserver.
type StatePublisher struct {
	pub       Publisher
	addr      gateway.DeviceAddress
	logger    Logger
	pending   chan message
	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

var (
	_ bridge.StateObserver = (*StatePublisher)(nil)
	_ bridge.FrameObserver = (*StatePublisher)(nil)
)

// New creates a publisher for the light at addr. buffer <= 0 uses a
// small default.
func New(pub Publisher, addr gateway.DeviceAddress, buffer int, logger Logger) *StatePublisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &StatePublisher{
		pub:     pub,
		addr:    addr,
		logger:  logger,
		pending: make(chan message, buffer),
	}
}

// ColorApplied queues the new light state.
func (s *StatePublisher) ColorApplied(cmd bridge.ColorCommand, addr gateway.DeviceAddress, rgbw gateway.RGBW) {
	state := LightState{
		CommandID: cmd.ID.String(),
		Room:      cmd.Room,
		Color:     cmd.Color.Hex(),
		RGBW:      [4]uint8(rgbw),
		AppliedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.enqueue(s.pub.Topics().LightState(addr.String()), state, true)
}

// FramePosted queues a frame announcement.
func (s *StatePublisher) FramePosted(frame bridge.CapturedFrame, photo chat.UploadedPhoto) {
	posted := FramePosted{
		CommandID: frame.CommandID.String(),
		Room:      frame.Room,
		URI:       photo.URI,
		Size:      photo.Size,
		PostedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	s.enqueue(s.pub.Topics().Frames(s.addr.String()), posted, false)
}

func (s *StatePublisher) enqueue(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.failed.Add(1)
		s.warn("state encode failed", "topic", topic, "error", err)
		return
	}
	select {
	case s.pending <- message{topic: topic, payload: payload, retained: retained}:
	default:
		s.dropped.Add(1)
	}
}

// Run publishes queued messages until ctx ends.
func (s *StatePublisher) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-s.pending:
			s.publish(msg)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *StatePublisher) publish(msg message) {
	var err error
	if msg.retained {
		err = s.pub.PublishRetained(msg.topic, msg.payload)
	} else {
		err = s.pub.Publish(msg.topic, msg.payload, 0, false)
	}
	if err != nil {
		s.failed.Add(1)
		s.warn("state publish failed", "topic", msg.topic, "error", err)
		return
	}
	s.published.Add(1)
}

func (s *StatePublisher) warn(msg string, keysAndValues ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}

// Stats returns the publish counters.
func (s *StatePublisher) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Dropped:   s.dropped.Load(),
		Failed:    s.failed.Load(),
	}
}
