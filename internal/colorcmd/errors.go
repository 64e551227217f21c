package colorcmd

import "errors"

var (
	// ErrNotCommand is returned when a message body does not carry the command prefix.
	ErrNotCommand = errors.New("colorcmd: not a colour command")

	// ErrInvalidColor is returned when the text after the prefix is not a CSS colour.
	ErrInvalidColor = errors.New("colorcmd: invalid colour")
)
