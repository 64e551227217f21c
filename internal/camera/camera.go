package camera

import (
	"errors"
	"time"
)

var (
	// ErrOpenFailed is returned when the device cannot be opened or configured.
	ErrOpenFailed = errors.New("camera: open failed")

	// ErrCaptureFailed is returned when no frame could be read.
	ErrCaptureFailed = errors.New("camera: capture failed")

	// ErrUnsupported is returned on platforms without V4L2.
	ErrUnsupported = errors.New("camera: not supported on this platform")

	// ErrClosed is returned by Capture after Close.
	ErrClosed = errors.New("camera: closed")
)

// Config describes how the device is opened.
type Config struct {
	Path   string
	Width  uint32
	Height uint32
	FPS    float32

	// Timeout bounds the wait for one frame. Default: 5 seconds.
	Timeout time.Duration
}

// Capturer is a source of raw encoded frames.
type Capturer interface {
	Capture() ([]byte, error)
	Close() error
}

// Settings reports what the driver actually granted.
type Settings struct {
	Format string
	Width  uint32
	Height uint32
}

const defaultTimeout = 5 * time.Second

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	return c
}
