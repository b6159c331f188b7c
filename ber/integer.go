package ber

import "github.com/intersec-oss/iop/internal/status"

// DecodeInt sign-extends from the first byte and folds the remaining
// bytes big-endian, mirroring original_source/asn1.c's
// BER_DECODE_INT_IMPL macro. width is the carrier width in bytes (1, 2,
// 4, or 8 for int8/int16/int32/int64).
func DecodeInt(c *Cursor, width int) (int64, error) {
	if c.Len() > width {
		return 0, status.New(status.Invalid, "ber: int encoding too wide (%d > %d)", c.Len(), width)
	}
	b, err := c.GetByte()
	if err != nil {
		return 0, err
	}
	v := int64(int8(b))
	for !c.Done() {
		nb, _ := c.GetByte()
		v = (v << 8) | int64(nb)
	}
	return v, nil
}

// DecodeUint mirrors BER_DECODE_UINT_IMPL: same sign-extend-then-fold
// walk, but additionally accepts one leading zero byte when the content
// is exactly width+1 bytes, disambiguating a top bit that would
// otherwise look like a sign bit (spec §4.1, §9 Open Question 2: this
// leniency is not offered for uint8 - DecodeUint is only ever called
// with width 2/4/8, see DESIGN.md Open Question 3).
func DecodeUint(c *Cursor, width int) (uint64, error) {
	if c.Len() > width {
		if c.Len() == width+1 {
			first, _ := c.PeekByte()
			if first == 0x00 {
				_, _ = c.GetByte()
			} else {
				return 0, status.New(status.Invalid, "ber: uint encoding too wide (%d > %d)", c.Len(), width)
			}
		} else {
			return 0, status.New(status.Invalid, "ber: uint encoding too wide (%d > %d)", c.Len(), width)
		}
	}
	b, err := c.GetByte()
	if err != nil {
		return 0, err
	}
	v := int64(int8(b))
	for !c.Done() {
		nb, _ := c.GetByte()
		v = (v << 8) | int64(nb)
	}
	return uint64(v), nil
}

// DecodeUint8 is the uint8 carrier: a single content byte already spans
// the full unsigned range (0-255) without a sign-bit ambiguity to
// disambiguate, so - unlike DecodeUint - no leading-zero leniency
// applies (spec §9 Open Question; DESIGN.md Open Question 3 records this
// as intentional, not an oversight).
func DecodeUint8(c *Cursor) (uint8, error) {
	if c.Len() != 1 {
		return 0, status.New(status.Invalid, "ber: uint8 encoding must be exactly 1 byte, got %d", c.Len())
	}
	b, err := c.GetByte()
	return b, err
}

func minBytesSigned(v int64) int {
	n := 1
	for v > 127 || v < -128 {
		v >>= 8
		n++
	}
	return n
}

func packSignedMinimal(v int64, width int) []byte {
	n := minBytesSigned(v)
	if n > width {
		n = width
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// PackInt32 emits the minimum-byte-count, big-endian, two's-complement
// shortest encoding of v, e.g. PackInt32(255) -> 0x00 0xFF,
// PackInt32(-255) -> 0xFF 0x01 (spec §8 scenario 1).
func PackInt16(v int16) []byte { return packSignedMinimal(int64(v), 2) }
func PackInt32(v int32) []byte { return packSignedMinimal(int64(v), 4) }
func PackInt64(v int64) []byte { return packSignedMinimal(v, 8) }

// PackUint32 treats v as unsigned and prepends a disambiguating zero byte
// whenever the shortest signed encoding of the same bit pattern would
// otherwise look negative, e.g. PackUint32(0xFFFFFFFF) -> 0x00 0xFF 0xFF
// 0xFF 0xFF (spec §8 scenario 1).
func PackUint16(v uint16) []byte { return packUnsignedMinimal(uint64(v), 2) }
func PackUint32(v uint32) []byte { return packUnsignedMinimal(uint64(v), 4) }
func PackUint64(v uint64) []byte { return packUnsignedMinimal(v, 8) }

func packUnsignedMinimal(v uint64, width int) []byte {
	n := 1
	vv := v
	for vv > 0xff {
		vv >>= 8
		n++
	}
	if n > width {
		n = width
	}
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	if out[0]&0x80 != 0 {
		out = append([]byte{0x00}, out...)
	}
	return out
}

// PackTag emits a single-byte BER identifier octet (spec §4.2's choice
// tag table assumes single-byte tags throughout; multi-byte tags are a
// documented, unimplemented latent extension - spec §9).
func PackTag(class byte, constructed bool, tagNum byte) byte {
	b := class << 6
	if constructed {
		b |= 0x20
	}
	b |= tagNum & 0x1f
	return b
}
