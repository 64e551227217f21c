package gateway

import (
	"encoding/binary"
	"fmt"
	"io"
)

// RGBW is the colour payload for one set-colour request.
type RGBW [4]byte

// Protocol constants.
const (
	flagSingleDevice byte = 0x00
	cmdSetColor      byte = 0x36

	// requestBodyLen excludes the 2-byte length prefix.
	requestBodyLen = 20

	// responseMinBodyLen covers flag, command, request id and status.
	responseMinBodyLen = 7

	// responseMaxBodyLen guards against reading garbage as a length.
	responseMaxBodyLen = 512

	statusOK byte = 0x00
)

// encodeSetColor builds a complete set-colour request frame.
func encodeSetColor(requestID uint32, addr DeviceAddress, color RGBW, transition uint16) []byte {
	frame := make([]byte, 2+requestBodyLen)
	binary.LittleEndian.PutUint16(frame[0:2], requestBodyLen)
	frame[2] = flagSingleDevice
	frame[3] = cmdSetColor
	binary.LittleEndian.PutUint32(frame[4:8], requestID)
	copy(frame[8:16], addr[:])
	copy(frame[16:20], color[:])
	binary.LittleEndian.PutUint16(frame[20:22], transition)
	return frame
}

// response is the decoded acknowledgement for one request.
type response struct {
	Command   byte
	RequestID uint32
	Status    byte
}

// readResponse reads exactly one response frame from r.
func readResponse(r io.Reader) (response, error) {
	var sizeBytes [2]byte
	if _, err := io.ReadFull(r, sizeBytes[:]); err != nil {
		return response{}, fmt.Errorf("read size: %w", err)
	}

	size := int(binary.LittleEndian.Uint16(sizeBytes[:]))
	if size < responseMinBodyLen || size > responseMaxBodyLen {
		return response{}, fmt.Errorf("%w: response length %d", ErrProtocol, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}

	return response{
		Command:   body[1],
		RequestID: binary.LittleEndian.Uint32(body[2:6]),
		Status:    body[6],
	}, nil
}

// check matches a response against the request it answers.
func (r response) check(requestID uint32) error {
	if r.Command != cmdSetColor {
		return fmt.Errorf("%w: unexpected command 0x%02x", ErrProtocol, r.Command)
	}
	if r.RequestID != requestID {
		return fmt.Errorf("%w: response for request %d, expected %d", ErrProtocol, r.RequestID, requestID)
	}
	if r.Status != statusOK {
		return fmt.Errorf("%w: gateway status 0x%02x", ErrCommandFailed, r.Status)
	}
	return nil
}
