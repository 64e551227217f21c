// Package gateway talks to the lighting gateway that drives the light.
//
// The gateway speaks a small binary protocol over one TCP connection
// (port 4000 by default), redialled on the next request after a failure. colorbridge uses a single request:
// "set colour" for one device address, acknowledged by the gateway with a
// status byte.
//
// # Frame layout
//
// Every frame starts with a little-endian uint16 holding the number of
// bytes that follow it.
//
//	request  (22 bytes)
//	  0-1   length = 20
//	  2     flag (0x00 = single device)
//	  3     command (0x36 = set colour)
//	  4-7   request id, uint32 LE
//	  8-15  device address
//	  16-19 red, green, blue, white
//	  20-21 transition time in 1/10 s, uint16 LE
//
//	response (at least 9 bytes)
//	  0-1   length
//	  2     flag
//	  3     command echo
//	  4-7   request id echo
//	  8     status (0x00 = ok)
//	  9-    device specific, ignored
//
// # Ownership
//
// A Client allows one request in flight. The bridge gives the only Client
// to its hardware controller so colours reach the light in the order they
// were requested.
package gateway
