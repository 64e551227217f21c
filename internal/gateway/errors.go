package gateway

import "errors"

// Domain errors for the gateway package.
var (
	// ErrInvalidAddress is returned when a device address literal cannot be parsed.
	ErrInvalidAddress = errors.New("gateway: invalid device address")

	// ErrConnectionFailed is returned when the gateway cannot be reached.
	ErrConnectionFailed = errors.New("gateway: connection failed")

	// ErrNotConnected is returned when a request is made on a closed client
	// or a broken connection could not be redialled.
	ErrNotConnected = errors.New("gateway: not connected")

	// ErrCommandFailed is returned when a set-colour request is not acknowledged.
	ErrCommandFailed = errors.New("gateway: command failed")

	// ErrProtocol is returned when the gateway sends a frame that does not fit the protocol.
	ErrProtocol = errors.New("gateway: protocol error")
)
