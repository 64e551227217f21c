package colorcmd

import "fmt"

// Color is an 8-bit RGB colour parsed from a command.
type Color struct {
	R, G, B uint8
}

// RGBW is the four-channel payload understood by the light.
type RGBW [4]uint8

// RGBW derives the light payload. The white channel carries the common
// minimum of the three colour channels; R, G and B are passed through as-is.
func (c Color) RGBW() RGBW {
	w := min(c.R, c.G, c.B)
	return RGBW{c.R, c.G, c.B, w}
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// R, G, B and W accessors keep call sites readable.
func (p RGBW) R() uint8 { return p[0] }
func (p RGBW) G() uint8 { return p[1] }
func (p RGBW) B() uint8 { return p[2] }
func (p RGBW) W() uint8 { return p[3] }

// String implements fmt.Stringer.
func (p RGBW) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", p[0], p[1], p[2], p[3])
}
