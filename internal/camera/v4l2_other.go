//go:build !linux

package camera

// Device is unavailable on this platform.
type Device struct{}

// Open always fails with ErrUnsupported.
func Open(cfg Config) (*Device, error) {
	return nil, ErrUnsupported
}

// Settings returns the zero value.
func (d *Device) Settings() Settings { return Settings{} }

// Capture always fails with ErrUnsupported.
func (d *Device) Capture() ([]byte, error) { return nil, ErrUnsupported }

// Close is a no-op.
func (d *Device) Close() error { return nil }
