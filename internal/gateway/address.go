package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressLen is the number of bytes in a device address.
const AddressLen = 8

// Address literal encodings.
const (
	FormatDecimal = "decimal"
	FormatHex     = "hex"
)

// DeviceAddress identifies one light on the gateway.
type DeviceAddress [AddressLen]byte

// ParseDeviceAddress parses eight colon-separated byte values.
//
// format selects the base of each part: "decimal" ("0:23:255:...") or
// "hex" ("00:17:ff:..."). Hex parts may be one or two digits, either case.
//
// Returns ErrInvalidAddress unless exactly eight valid bytes are present.
func ParseDeviceAddress(s, format string) (DeviceAddress, error) {
	var base int
	switch format {
	case FormatDecimal:
		base = 10
	case FormatHex:
		base = 16
	default:
		return DeviceAddress{}, fmt.Errorf("%w: unknown format %q", ErrInvalidAddress, format)
	}

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != AddressLen {
		return DeviceAddress{}, fmt.Errorf("%w: expected %d colon-separated bytes, got %d in %q",
			ErrInvalidAddress, AddressLen, len(parts), s)
	}

	var addr DeviceAddress
	for i, part := range parts {
		v, err := strconv.ParseUint(part, base, 8)
		if err != nil {
			return DeviceAddress{}, fmt.Errorf("%w: byte %d %q is not a %s byte", ErrInvalidAddress, i, part, format)
		}
		addr[i] = byte(v)
	}

	return addr, nil
}

// String returns the address as colon-separated lowercase hex.
func (a DeviceAddress) String() string {
	var b strings.Builder
	for i, v := range a {
		if i > 0 {
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "%02x", v)
	}
	return b.String()
}
