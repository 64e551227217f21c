//go:build linux

package camera

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/blackjack/webcam"
)

// pixelFormatMJPEG is the V4L2 fourcc "MJPG".
const pixelFormatMJPEG webcam.PixelFormat = 0x47504A4D

// Device is a streaming V4L2 camera.
//
// Thread Safety:
//   - Capture and Close may be called from different goroutines.
type Device struct {
	cfg      Config
	mu       sync.Mutex
	cam      *webcam.Webcam
	settings Settings
}

// Ensure Device implements Capturer.
var _ Capturer = (*Device)(nil)

// Open opens and starts the camera at cfg.Path.
//
// Returns an error wrapping ErrOpenFailed if the device does not exist, does
// not offer MJPEG, or refuses to stream.
func Open(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()

	cam, err := webcam.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, cfg.Path, err)
	}

	settings, err := configure(cam, cfg)
	if err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, cfg.Path, err)
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, fmt.Errorf("%w: %s: start streaming: %w", ErrOpenFailed, cfg.Path, err)
	}

	return &Device{cfg: cfg, cam: cam, settings: settings}, nil
}

func configure(cam *webcam.Webcam, cfg Config) (Settings, error) {
	formats := cam.GetSupportedFormats()
	if _, ok := formats[pixelFormatMJPEG]; !ok {
		return Settings{}, errors.New("device does not offer MJPEG")
	}

	format, width, height, err := cam.SetImageFormat(pixelFormatMJPEG, cfg.Width, cfg.Height)
	if err != nil {
		return Settings{}, fmt.Errorf("set image format: %w", err)
	}
	if format != pixelFormatMJPEG {
		return Settings{}, fmt.Errorf("driver switched format to %s", formats[format])
	}

	if err := cam.SetFramerate(cfg.FPS); err != nil {
		return Settings{}, fmt.Errorf("set frame rate: %w", err)
	}

	return Settings{Format: formats[format], Width: width, Height: height}, nil
}

// Settings returns the format the driver granted.
func (d *Device) Settings() Settings {
	return d.settings
}

// Capture waits for the next frame and returns a copy of it.
func (d *Device) Capture() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cam == nil {
		return nil, ErrClosed
	}

	timeout := uint32(math.Ceil(d.cfg.Timeout.Seconds()))
	for {
		err := d.cam.WaitForFrame(timeout)
		var timeoutErr *webcam.Timeout
		if errors.As(err, &timeoutErr) {
			return nil, fmt.Errorf("%w: no frame within %v", ErrCaptureFailed, d.cfg.Timeout)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
		}

		frame, err := d.cam.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
		}
		// Drivers occasionally hand back an empty buffer; wait for the next one.
		if len(frame) == 0 {
			continue
		}

		// The buffer belongs to the driver and is reused on the next dequeue.
		return append([]byte(nil), frame...), nil
	}
}

// Close stops streaming and releases the device. Safe to call more than once.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cam == nil {
		return nil
	}
	cam := d.cam
	d.cam = nil

	stopErr := cam.StopStreaming()
	closeErr := cam.Close()
	return errors.Join(stopErr, closeErr)
}
