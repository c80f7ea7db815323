// Package cosem implements the shared COSEM Common Data Types grammar,
// the LLC-PDU/APDU wrapper, and date-time/scaler-unit decoding used by
// all three vendor-specific notification-body grammars.
package cosem

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when the cursor runs out of bytes mid-parse.
var ErrTruncated = errors.New("cosem: truncated payload")

// ErrUnexpectedTag is returned when a tag byte does not match what the
// grammar at this position requires.
var ErrUnexpectedTag = errors.New("cosem: unexpected type tag")

// Cursor is a forward-only reader over a COSEM APDU byte string. Every
// vendor grammar is a small recursive-descent parser built on top of
// one of these, never on reflection.
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor wraps data for sequential decoding.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Remaining reports how many bytes are left to read.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Byte consumes and returns the next byte.
func (c *Cursor) Byte() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrTruncated
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (c *Cursor) PeekByte() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrTruncated
	}
	return c.data[c.pos], nil
}

// Bytes consumes and returns the next n bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if c.Remaining() < n {
		return nil, ErrTruncated
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Uint16 consumes a big-endian 2-byte unsigned integer.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// Uint32 consumes a big-endian 4-byte unsigned integer.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Int16 consumes a big-endian 2-byte signed integer.
func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

// Int8 consumes a 1-byte signed integer.
func (c *Cursor) Int8() (int8, error) {
	b, err := c.Byte()
	return int8(b), err
}

// ExpectTag consumes a tag byte and requires it to equal want.
func (c *Cursor) ExpectTag(want Tag) error {
	got, err := c.Byte()
	if err != nil {
		return err
	}
	if Tag(got) != want {
		return fmt.Errorf("%w: wanted %v, got %v", ErrUnexpectedTag, want, Tag(got))
	}
	return nil
}
