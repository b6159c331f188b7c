package ber

import "github.com/intersec-oss/iop/internal/status"

// LengthKind distinguishes a definite BER length from the indefinite-length
// marker (spec §4.1: "length byte 0x80 means indefinite length").
type LengthKind int

const (
	Definite LengthKind = iota
	Indefinite
)

type Length struct {
	Kind  LengthKind
	Value uint32 // meaningful only when Kind == Definite
}

// DecodeLength mirrors original_source/asn1.c's ber_decode_len32: short
// form when the high bit of the first byte is clear; long form reads
// 1-4 subsequent length bytes; 0x80 is indefinite length; any other
// malformed long form (c==0 handled above, c>4 or insufficient bytes) is
// an error.
func DecodeLength(c *Cursor) (Length, error) {
	b, err := c.GetByte()
	if err != nil {
		return Length{}, err
	}
	if b&0x80 == 0 {
		return Length{Kind: Definite, Value: uint32(b)}, nil
	}
	n := int(b & 0x7f)
	if n == 0 {
		return Length{Kind: Indefinite}, nil
	}
	if n > 4 {
		return Length{}, status.New(status.Invalid, "ber: length encoding too wide (%d bytes)", n)
	}
	lb, err := c.Take(n)
	if err != nil {
		return Length{}, status.Wrap(status.Invalid, err, "ber: truncated long-form length")
	}
	var v uint32
	for _, x := range lb {
		v = (v << 8) | uint32(x)
	}
	return Length{Kind: Definite, Value: v}, nil
}

// PackLen emits short or long form and encodes the byte count in the
// first byte, mirroring original_source/asn1-writer.c's length packer.
func PackLen(n uint32) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var tmp [4]byte
	w := 0
	for shift := 24; shift >= 0; shift -= 8 {
		b := byte(n >> uint(shift))
		if w > 0 || b != 0 {
			tmp[w] = b
			w++
		}
	}
	if w == 0 {
		w = 1
	}
	out := make([]byte, 1+w)
	out[0] = 0x80 | byte(w)
	copy(out[1:], tmp[:w])
	return out
}
