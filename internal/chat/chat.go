package chat

import (
	"context"
	"errors"
	"time"
)

// Domain errors for chat backends.
var (
	// ErrStreamFailed is returned by Listen when the event stream breaks.
	ErrStreamFailed = errors.New("chat: event stream failed")

	// ErrUploadFailed is returned when a photo cannot be uploaded.
	ErrUploadFailed = errors.New("chat: upload failed")

	// ErrSendFailed is returned when a message cannot be posted.
	ErrSendFailed = errors.New("chat: send failed")

	// ErrInvalidRoom is returned when a room identifier is malformed for the backend.
	ErrInvalidRoom = errors.New("chat: invalid room")
)

// EventKind classifies events across backends.
type EventKind string

// Event kinds.
const (
	KindMessage EventKind = "message"
	KindOther   EventKind = "other"
)

// Event is one item from a chat event stream.
type Event struct {
	Kind EventKind

	// Type is the backend's own event type, e.g. "m.room.message".
	Type string

	// Room is empty when the backend could not attribute the event to a room.
	Room   string
	Sender string

	// Body is empty when the event carries no text.
	Body string

	ReceivedAt time.Time
}

// IsMessage reports whether the event is a room message with text.
func (e Event) IsMessage() bool {
	return e.Kind == KindMessage && e.Room != "" && e.Body != ""
}

// Photo is an encoded image to upload.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// UploadedPhoto references a photo in the chat service's media store.
type UploadedPhoto struct {
	// URI is the media reference. Backends that upload while sending
	// leave it empty and keep the bytes in Data instead.
	URI string

	Name        string
	ContentType string
	Size        int
	Width       int
	Height      int
	Data        []byte
}

// Client is a connected chat service.
type Client interface {
	// Name identifies the backend in logs.
	Name() string

	// Listen delivers events to events until ctx is cancelled (returns nil)
	// or the stream fails (returns an error wrapping ErrStreamFailed).
	// Events from the initial snapshot are not delivered.
	Listen(ctx context.Context, events chan<- Event) error

	// UploadPhoto stores photo and returns a reference to it.
	UploadPhoto(ctx context.Context, photo Photo) (UploadedPhoto, error)

	// SendPhoto posts an image message referencing photo to room.
	SendPhoto(ctx context.Context, room string, photo UploadedPhoto) error

	// Close releases the connection.
	Close() error
}

// Deliver sends evt on events unless ctx ends first.
// It reports whether the event was delivered.
func Deliver(ctx context.Context, events chan<- Event, evt Event) bool {
	select {
	case events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}
