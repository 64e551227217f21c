// Package bridge coordinates the three long-running tasks of colorbridge.
//
// The Consumer reads the chat event stream, parses colour commands and
// pushes them onto an unbounded command Queue. The Controller is the only
// owner of the gateway connection and the camera; it applies commands in
// arrival order on an OS-thread-locked goroutine and, when a camera is
// attached, hands captured frames to the Uploader over a small bounded
// channel. The Uploader transcodes each frame and posts it back to the
// room the command came from.
//
// Wind-down runs downstream: when the chat stream ends the queue is closed,
// the Controller drains it and closes the frame channel, and the Uploader
// drains that before Bridge.Run returns.
package bridge
