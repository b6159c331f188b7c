// Package ber implements the BER (Basic Encoding Rules) primitives spec §4.1:
// length/integer/tag encode-decode over an immutable byte-stream cursor.
//
// Grounded on original_source/asn1.c (ber_decode_len32, BER_DECODE_INT_IMPL,
// BER_DECODE_UINT_IMPL) and original_source/asn1-writer.c for the packing
// side; translated from the C pstream_t cursor idiom into a Go value type
// with explicit error returns instead of the C's int-return/out-param
// convention.
package ber

import "github.com/intersec-oss/iop/internal/status"

// Cursor is an immutable view (begin, end) into a buffer; reads advance
// begin and never mutate the backing array - spec §3 "byte-stream cursor".
type Cursor struct {
	buf   []byte
	begin int
	end   int
}

func NewCursor(buf []byte) Cursor { return Cursor{buf: buf, begin: 0, end: len(buf)} }

func (c Cursor) Len() int  { return c.end - c.begin }
func (c Cursor) Done() bool { return c.begin >= c.end }

// Bytes returns the unconsumed remainder without advancing the cursor.
func (c Cursor) Bytes() []byte { return c.buf[c.begin:c.end] }

var ErrTruncated = status.New(status.Invalid, "truncated BER input")

func (c *Cursor) GetByte() (byte, error) {
	if c.begin >= c.end {
		return 0, ErrTruncated
	}
	b := c.buf[c.begin]
	c.begin++
	return b, nil
}

// Take consumes and returns the next n bytes as a sub-slice view (no copy).
func (c *Cursor) Take(n int) ([]byte, error) {
	if n < 0 || c.begin+n > c.end {
		return nil, ErrTruncated
	}
	b := c.buf[c.begin : c.begin+n]
	c.begin += n
	return b, nil
}

// Sub carves out a bounded sub-cursor over the next n bytes, advancing this
// cursor past them - used to recurse into a composite value's content
// bytes (spec §4.2 unpack: "slice a sub-stream of data_size bytes").
func (c *Cursor) Sub(n int) (Cursor, error) {
	b, err := c.Take(n)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{buf: b, begin: 0, end: len(b)}, nil
}

// PeekByte returns the next byte without consuming it; ok is false at EOF.
func (c Cursor) PeekByte() (b byte, ok bool) {
	if c.begin >= c.end {
		return 0, false
	}
	return c.buf[c.begin], true
}
