package colorcmd

import (
	"fmt"
	"strings"

	"github.com/mazznoer/csscolorparser"
)

// DefaultPrefix marks a colour command in chat.
const DefaultPrefix = "%color"

// Parser recognises colour commands with a fixed prefix.
// The zero value uses DefaultPrefix.
type Parser struct {
	prefix string
}

// NewParser returns a Parser for prefix. An empty prefix means DefaultPrefix.
func NewParser(prefix string) Parser {
	return Parser{prefix: prefix}
}

// Prefix returns the literal the parser matches.
func (p Parser) Prefix() string {
	if p.prefix == "" {
		return DefaultPrefix
	}
	return p.prefix
}

// IsCommand reports whether body carries the command prefix.
func (p Parser) IsCommand(body string) bool {
	return strings.HasPrefix(body, p.Prefix())
}

// Parse extracts the colour from a command body.
//
// Returns ErrNotCommand when body does not start with the prefix, and an
// error wrapping ErrInvalidColor when the remainder is not a CSS colour.
func (p Parser) Parse(body string) (Color, error) {
	rest, ok := strings.CutPrefix(body, p.Prefix())
	if !ok {
		return Color{}, ErrNotCommand
	}
	return ParseLiteral(strings.TrimSpace(rest))
}

// ParseLiteral parses a bare CSS colour literal.
func ParseLiteral(literal string) (Color, error) {
	if literal == "" {
		return Color{}, fmt.Errorf("%w: empty literal", ErrInvalidColor)
	}

	c, err := csscolorparser.Parse(literal)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q: %w", ErrInvalidColor, literal, err)
	}

	r, g, b, _ := c.RGBA255()
	return Color{R: r, G: g, B: b}, nil
}
