package ber

import "github.com/intersec-oss/iop/internal/status"

// SkipField performs the tag+length walk of spec §4.1's skip_field:
// consumes one tag byte and a BER length; for a definite length it
// simply advances past the content; for an indefinite length
// (constructed values only) it recurses, consuming nested TLVs until
// the terminating EOC (0x00 0x00), matching the teacher idiom of
// decode-time tag/length walking mirrored from icwire's own frame-length
// extraction. indefParent indicates this call was reached while already
// unwinding an indefinite-length parent; SkipField itself does not read it.
func SkipField(c *Cursor, indefParent bool) ([]byte, error) {
	start := c.begin
	tag, err := c.GetByte()
	if err != nil {
		return nil, err
	}
	constructed := tag&0x20 != 0

	l, err := DecodeLength(c)
	if err != nil {
		return nil, err
	}
	switch l.Kind {
	case Definite:
		if _, err := c.Take(int(l.Value)); err != nil {
			return nil, status.Wrap(status.Invalid, err, "ber: skip_field truncated content")
		}
	case Indefinite:
		if !constructed {
			return nil, status.New(status.Invalid, "ber: indefinite length on primitive tag")
		}
		for {
			if c.Done() {
				return nil, ErrTruncated
			}
			b0, ok := c.PeekByte()
			if !ok {
				return nil, ErrTruncated
			}
			if b0 == 0x00 {
				// candidate EOC: tag=0x00, need next byte len=0x00
				save := *c
				_, _ = c.GetByte()
				b1, err := c.GetByte()
				if err != nil {
					return nil, ErrTruncated
				}
				if b1 == 0x00 {
					break // consumed EOC
				}
				*c = save
			}
			if _, err := SkipField(c, true); err != nil {
				return nil, err
			}
		}
	}
	return c.buf[start:c.begin], nil
}

// SkipIndefiniteContent consumes the nested TLVs of an indefinite-length
// composite value - positioned just after its 0x80 length octet - up to
// and including the terminating EOC (0x00 0x00), returning the content
// bytes with the EOC excluded. Used by the asn1 unpacker to turn an
// indefinite-length value into a bounded sub-cursor, the same way a
// definite length does via Cursor.Sub.
func SkipIndefiniteContent(c *Cursor) ([]byte, error) {
	remainingBefore := c.Bytes()
	for {
		if c.Done() {
			return nil, ErrTruncated
		}
		b0, _ := c.PeekByte()
		if b0 == 0x00 {
			save := *c
			_, _ = c.GetByte()
			b1, err := c.GetByte()
			if err != nil {
				return nil, ErrTruncated
			}
			if b1 == 0x00 {
				break
			}
			*c = save
		}
		if _, err := SkipField(c, true); err != nil {
			return nil, err
		}
	}
	n := len(remainingBefore) - len(c.Bytes()) - 2
	return remainingBefore[:n], nil
}
