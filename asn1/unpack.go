// Unpacking mirrors Pack's traversal (spec §4.2): the same descriptor walk,
// reading a tag+length header before every SEQUENCE/CHOICE/leaf instead of
// writing one, and slicing a bounded sub-cursor over a composite's content
// bytes (via Cursor.Sub, or SkipIndefiniteContent for an indefinite-length
// value) before recursing into it. Optional-field and seq-of presence is
// resolved the same way the BER wire format encodes it: by peeking the next
// tag and checking whether it belongs to the field in hand, rather than by
// any explicit presence marker.
package asn1

import (
	"reflect"

	"github.com/intersec-oss/iop/ber"
	"github.com/intersec-oss/iop/internal/status"
)

// Unpack decodes data into v, which must be a pointer to d's carrier
// struct type.
func Unpack(d *Descriptor, data []byte, v any) error {
	c := ber.NewCursor(data)
	rv := reflectValueOf(v)
	return unpackDescriptor(d, d.DefaultTag, &c, rv)
}

func unpackDescriptor(d *Descriptor, tag byte, c *ber.Cursor, v reflectValue) error {
	if d.Kind == KindChoice {
		return unpackFields(d, c, v)
	}
	gotTag, err := c.GetByte()
	if err != nil {
		return err
	}
	if gotTag != tag {
		return status.New(status.Invalid, "asn1: %s: expected tag 0x%02x, got 0x%02x", d.Name, tag, gotTag)
	}
	content, err := readContent(c)
	if err != nil {
		return err
	}
	sub := ber.NewCursor(content)
	return unpackFields(d, &sub, v)
}

func unpackFields(d *Descriptor, c *ber.Cursor, v reflectValue) error {
	if d.Kind == KindChoice {
		tag, ok := c.PeekByte()
		if !ok {
			return status.New(status.Invalid, "asn1: %s: empty choice content", d.Name)
		}
		idx := d.DispatchTag(tag)
		if idx == 0 {
			return status.New(status.Invalid, "asn1: %s: unknown choice tag 0x%02x", d.Name, tag)
		}
		v.Field(d.Fields[0].FieldIndex).SetInt(int64(idx))
		return unpackField(&d.Fields[idx], c, v)
	}
	for i := 0; i < len(d.Fields); i++ {
		f := &d.Fields[i]
		if f.Mode == SeqOf {
			if err := unpackSeqOf(f, c, v); err != nil {
				return err
			}
			continue
		}
		tag, ok := c.PeekByte()
		present := ok && fieldMatchesTag(f, tag)
		if !present {
			if f.Mode == Mandatory {
				return status.New(status.Invalid, "asn1: %s.%s: mandatory field missing", d.Name, f.Name)
			}
			continue
		}
		if err := unpackField(f, c, v); err != nil {
			return err
		}
	}
	return nil
}

// fieldMatchesTag reports whether tag belongs to f: a direct comparison
// for everything with its own identifier octet, or a lookup in the
// untagged choice's own dispatch table for TUntaggedChoice, which has
// none of its own.
func fieldMatchesTag(f *Field, tag byte) bool {
	if f.Type == TUntaggedChoice {
		return f.Elem.DispatchTag(tag) != 0
	}
	return tag == f.Tag
}

// unpackField consumes exactly one occurrence of f from c and writes it
// into v's corresponding struct field, allocating the pointed-to element
// for a pointer-carrier Optional field first.
func unpackField(f *Field, c *ber.Cursor, v reflectValue) error {
	fv := v.Field(f.FieldIndex)
	switch f.Type {
	case TSequence, TChoice:
		storage := prepareForDecode(fv, f)
		return unpackDescriptor(f.Elem, f.Tag, c, storage)
	case TUntaggedChoice:
		storage := fv
		if f.Mode == Optional {
			storage = prepareForDecode(fv, f)
		}
		return unpackFields(f.Elem, c, storage)
	default:
		tag, err := c.GetByte()
		if err != nil {
			return err
		}
		if tag != f.Tag {
			return status.New(status.Invalid, "asn1: %s: expected tag 0x%02x, got 0x%02x", f.Name, f.Tag, tag)
		}
		content, err := readContent(c)
		if err != nil {
			return err
		}
		return setLeaf(f, leafStorage(f, fv), content)
	}
}

// leafStorage returns where a decoded scalar/string/bitstring/opaque/
// open-type value should be written, resolving the Opt[T]/pointer/plain
// carrier convention unwrap uses on the write side.
func leafStorage(f *Field, fv reflectValue) reflectValue {
	if f.Mode != Optional {
		return fv
	}
	switch f.Type {
	case TString, TBitString:
		return prepareForDecode(fv, f)
	case TOpaque, TOpenType:
		return fv
	default:
		return presentOpt(fv)
	}
}

func unpackSeqOfElem(f *Field, c *ber.Cursor, storage reflectValue) error {
	switch f.Type {
	case TSequence, TChoice:
		return unpackDescriptor(f.Elem, f.Tag, c, storage)
	case TUntaggedChoice:
		return unpackFields(f.Elem, c, storage)
	default:
		tag, err := c.GetByte()
		if err != nil {
			return err
		}
		if tag != f.Tag {
			return status.New(status.Invalid, "asn1: %s: expected tag 0x%02x, got 0x%02x", f.Name, f.Tag, tag)
		}
		content, err := readContent(c)
		if err != nil {
			return err
		}
		return setLeaf(f, storage, content)
	}
}

func unpackSeqOf(f *Field, c *ber.Cursor, v reflectValue) error {
	fv := v.Field(f.FieldIndex)
	sliceType := fv.Type()
	elems := reflect.MakeSlice(sliceType, 0, 0)
	for {
		tag, ok := c.PeekByte()
		if !ok || !fieldMatchesTag(f, tag) {
			break
		}
		if f.Pointed {
			elem := reflect.New(sliceType.Elem().Elem())
			if err := unpackSeqOfElem(f, c, elem.Elem()); err != nil {
				return err
			}
			elems = reflect.Append(elems, elem)
		} else {
			elem := reflect.New(sliceType.Elem()).Elem()
			if err := unpackSeqOfElem(f, c, elem); err != nil {
				return err
			}
			elems = reflect.Append(elems, elem)
		}
	}
	if f.SeqOf != nil && !f.SeqOf.Extended {
		n := elems.Len()
		if n < f.SeqOf.Min || (f.SeqOf.Max > 0 && n > f.SeqOf.Max) {
			return status.New(status.Invalid, "asn1: %s: seq-of length %d out of [%d,%d]", f.Name, n, f.SeqOf.Min, f.SeqOf.Max)
		}
	}
	fv.Set(elems)
	return nil
}

// readContent reads a length header (tag already consumed) and returns
// the content bytes, carving them out of an indefinite-length value's
// nested TLVs via ber.SkipIndefiniteContent when no definite length was
// given.
func readContent(c *ber.Cursor) ([]byte, error) {
	l, err := ber.DecodeLength(c)
	if err != nil {
		return nil, err
	}
	if l.Kind == ber.Definite {
		return c.Take(int(l.Value))
	}
	return ber.SkipIndefiniteContent(c)
}
