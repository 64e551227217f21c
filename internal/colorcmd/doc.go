// Package colorcmd turns chat messages into light colours.
//
// A command is any message body that starts with the command prefix
// (default "%color"). The remainder, trimmed of surrounding whitespace, is
// parsed as a CSS colour literal: hex (#f00, #ff0000), functional notation
// (rgb(), hsl(), hwb()) or a named colour. Alpha is accepted and ignored.
//
// The package is pure: no state, no I/O.
//
//	p := colorcmd.NewParser(colorcmd.DefaultPrefix)
//	c, err := p.Parse("%color rebeccapurple")
//	switch {
//	case errors.Is(err, colorcmd.ErrNotCommand):
//	    // ordinary chat, ignore
//	case err != nil:
//	    // log and drop
//	default:
//	    payload := c.RGBW() // white = min(r, g, b)
//	}
package colorcmd
