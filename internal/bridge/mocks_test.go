package bridge

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"

	"github.com/nerrad567/colorbridge/internal/chat"
	"github.com/nerrad567/colorbridge/internal/gateway"
)

// MockGateway records every colour written.
type MockGateway struct {
	mu        sync.Mutex
	calls     []gateway.RGBW
	addrs     []gateway.DeviceAddress
	failOn    map[int]error
	connected bool
}

func newMockGateway() *MockGateway {
	return &MockGateway{connected: true, failOn: map[int]error{}}
}

func (m *MockGateway) SetRGBW(_ context.Context, addr gateway.DeviceAddress, c gateway.RGBW) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.calls)
	m.calls = append(m.calls, c)
	m.addrs = append(m.addrs, addr)
	return m.failOn[n]
}

func (m *MockGateway) IsConnected() bool { return m.connected }

func (m *MockGateway) Stats() gateway.Stats { return gateway.Stats{Connected: m.connected} }

func (m *MockGateway) Close() error { return nil }

func (m *MockGateway) Calls() []gateway.RGBW {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.RGBW(nil), m.calls...)
}

// MockCamera returns frame for every capture unless err is set.
type MockCamera struct {
	mu    sync.Mutex
	frame []byte
	err   error
	count int
}

func (m *MockCamera) Capture() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	if m.err != nil {
		return nil, m.err
	}
	return m.frame, nil
}

func (m *MockCamera) Close() error { return nil }

func (m *MockCamera) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// MockChat delivers a fixed set of events, then ends the stream with
// endErr. With hold set it instead waits for ctx after the events.
type MockChat struct {
	events []chat.Event
	endErr error
	hold   bool

	mu        sync.Mutex
	uploads   []chat.Photo
	sent      []sentPhoto
	uploadErr error
	sendErr   error
}

type sentPhoto struct {
	Room  string
	Photo chat.UploadedPhoto
}

func (m *MockChat) Name() string { return "mock" }

func (m *MockChat) Listen(ctx context.Context, events chan<- chat.Event) error {
	for _, evt := range m.events {
		if !chat.Deliver(ctx, events, evt) {
			return nil
		}
	}
	if m.hold {
		<-ctx.Done()
		return nil
	}
	return m.endErr
}

func (m *MockChat) UploadPhoto(_ context.Context, photo chat.Photo) (chat.UploadedPhoto, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, photo)
	if m.uploadErr != nil {
		return chat.UploadedPhoto{}, m.uploadErr
	}
	return chat.UploadedPhoto{
		URI:         "mxc://test/" + photo.Name,
		Name:        photo.Name,
		ContentType: photo.ContentType,
		Size:        len(photo.Data),
	}, nil
}

func (m *MockChat) SendPhoto(_ context.Context, room string, photo chat.UploadedPhoto) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentPhoto{Room: room, Photo: photo})
	return nil
}

func (m *MockChat) Close() error { return nil }

func (m *MockChat) Sent() []sentPhoto {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentPhoto(nil), m.sent...)
}

func message(room, body string) chat.Event {
	return chat.Event{Kind: chat.KindMessage, Type: "m.room.message", Room: room, Sender: "@alice:test", Body: body}
}

// testJPEG encodes a small solid image.
func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return buf.Bytes()
}

var errBoom = errors.New("boom")
