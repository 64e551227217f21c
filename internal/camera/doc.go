// Package camera grabs still frames from a V4L2 video device.
//
// The device is opened once, configured for compressed MJPEG frames at a
// fixed resolution and frame rate, and left streaming. Capture blocks until
// the next frame arrives and returns a private copy of its bytes, which are
// a complete JPEG image in most cases.
//
// Only Linux is supported; Open fails with ErrUnsupported elsewhere.
package camera
