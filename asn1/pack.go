// Packing is the two-pass algorithm of spec §4.2: PackSize walks the
// descriptor and value computing each visited value's content length onto
// a lenStack (reserving a slot before descending into a SEQUENCE/CHOICE
// and patching it afterward); Pack then consumes the same stack in the
// same order, writing tag, length, and value bytes. The packer never
// fails on well-formed input; a missing MANDATORY value or an arithmetic
// overflow in size computation is a programmer error and panics, per
// spec §4.2's closing paragraph.
package asn1

import (
	"fmt"

	"github.com/intersec-oss/iop/ber"
	"github.com/intersec-oss/iop/internal/status"
)

// carrier field Go-type conventions (see DESIGN.md): TBool->bool,
// TI8/TU8->int8/uint8, TI16/TU16->int16/uint16, TI32/TU32->int32/uint32,
// TI64/TU64->int64/uint64, TEnum->int64, TString->string (or *string
// when Optional), TBitString->BitString, TOpaque->any via OpaqueCodec,
// TOpenType->[]byte, TSequence/TChoice/TUntaggedChoice->nested struct (or
// pointer when Optional), SeqOf mode->[]T (or []*T when Pointed).

// PackSize computes pack_size(v): the total bytes Pack would emit,
// including this descriptor's own tag+length header - spec §8 "size pass
// fidelity: pack_size(v) == len(pack(v))".
func PackSize(d *Descriptor, v any) (int, error) {
	stack := &lenStack{}
	rv := reflectValueOf(v)
	n, err := sizeDescriptor(d, d.DefaultTag, rv, stack)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Pack runs the size pass then the emit pass and returns the packed
// bytes - spec §8 "length monotonicity: packing the same value twice
// produces byte-identical output" follows directly from both passes
// being pure functions of (descriptor, value).
func Pack(d *Descriptor, v any) ([]byte, error) {
	stack := &lenStack{}
	rv := reflectValueOf(v)
	total, err := sizeDescriptor(d, d.DefaultTag, rv, stack)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, total)
	stack.rpos = 0
	out, err = emitDescriptor(d, d.DefaultTag, rv, stack, out)
	if err != nil {
		return nil, err
	}
	if !stack.done() {
		return nil, status.New(status.ServerError, "asn1: emit pass did not consume the full size stack")
	}
	return out, nil
}

// sizeDescriptor returns the full TLV length of d's encoding of v. A
// CHOICE descriptor has no wrapper of its own - the selected alternative's
// own TLV (already pushed by sizeLeafOrNested/sizeField) *is* the
// encoding, so tag is ignored and no extra slot is reserved. A
// SEQUENCE/SET descriptor reserves a stack slot before sizing its fields
// and patches its content length into it afterward, so the matching
// emitDescriptor call reads it ahead of its fields' own entries.
func sizeDescriptor(d *Descriptor, tag byte, v reflectValue, stack *lenStack) (int, error) {
	if d.Kind == KindChoice {
		return sizeFields(d, v, stack)
	}
	slot := stack.reserve()
	content, err := sizeFields(d, v, stack)
	if err != nil {
		return 0, err
	}
	stack.patch(slot, content)
	return 1 + len(ber.PackLen(uint32(content))) + content, nil
}

func sizeFields(d *Descriptor, v reflectValue, stack *lenStack) (int, error) {
	total := 0
	start := 0
	if d.Kind == KindChoice {
		start = 1 // field 0 is the discriminator, not itself emitted
		idx, err := choiceSelector(d, v)
		if err != nil {
			return 0, err
		}
		f := &d.Fields[idx]
		n, err := sizeField(f, v, stack)
		if err != nil {
			return 0, err
		}
		return n, nil
	}
	for i := start; i < len(d.Fields); i++ {
		f := &d.Fields[i]
		if f.Mode == SeqOf {
			n, err := sizeSeqOf(f, v, stack)
			if err != nil {
				return 0, err
			}
			total += n
			continue
		}
		fv := v.Field(f.FieldIndex)
		eff, present := unwrapRV(fv, f)
		if !present {
			if f.Mode == Mandatory {
				panic(fmt.Sprintf("asn1: %s.%s: mandatory field absent", d.Name, f.Name))
			}
			continue
		}
		n, err := sizeLeafOrNested(f, eff, stack)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func sizeField(f *Field, v reflectValue, stack *lenStack) (int, error) {
	fv := v.Field(f.FieldIndex)
	eff, present := unwrapRV(fv, f)
	if !present {
		if f.Mode == Mandatory {
			panic(fmt.Sprintf("asn1: %s: mandatory choice field absent", f.Name))
		}
		return 0, nil
	}
	return sizeLeafOrNested(f, eff, stack)
}

func sizeSeqOf(f *Field, v reflectValue, stack *lenStack) (int, error) {
	fv := v.Field(f.FieldIndex)
	n := fv.Len()
	if f.SeqOf != nil && !f.SeqOf.Extended {
		if n < f.SeqOf.Min || (f.SeqOf.Max > 0 && n > f.SeqOf.Max) {
			return 0, status.New(status.Invalid, "asn1: %s: seq-of length %d out of [%d,%d]", f.Name, n, f.SeqOf.Min, f.SeqOf.Max)
		}
	}
	total := 0
	for i := 0; i < n; i++ {
		elem := fv.Index(i)
		if f.Pointed {
			elem = elem.Elem()
		}
		sz, err := sizeLeafOrNested(f, elem, stack)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

// sizeLeafOrNested sizes a single occurrence of f's value (already
// unwrapped from its Optional/SeqOf carrier), pushing whatever
// sizeDescriptor or the leaf branch itself pushes onto stack.
func sizeLeafOrNested(f *Field, eff reflectValue, stack *lenStack) (int, error) {
	switch f.Type {
	case TSequence, TChoice:
		return sizeDescriptor(f.Elem, f.Tag, eff, stack)
	case TUntaggedChoice:
		return sizeFields(f.Elem, eff, stack) // no own tag/len header
	default:
		n, err := leafContentLen(f, eff)
		if err != nil {
			return 0, err
		}
		stack.push(n)
		return 1 + len(ber.PackLen(uint32(n))) + n, nil
	}
}

// emitDescriptor writes d's TLV encoding of v to out, consuming one
// lenStack slot per sizeDescriptor/sizeLeafOrNested call made during the
// matching size pass, in the same order.
func emitDescriptor(d *Descriptor, tag byte, v reflectValue, stack *lenStack, out []byte) ([]byte, error) {
	if d.Kind == KindChoice {
		return emitFields(d, v, stack, out)
	}
	content := stack.next()
	out = append(out, tag)
	out = append(out, ber.PackLen(uint32(content))...)
	return emitFields(d, v, stack, out)
}

func emitFields(d *Descriptor, v reflectValue, stack *lenStack, out []byte) ([]byte, error) {
	start := 0
	if d.Kind == KindChoice {
		idx, err := choiceSelector(d, v)
		if err != nil {
			return nil, err
		}
		return emitField(&d.Fields[idx], v, stack, out)
	}
	for i := start; i < len(d.Fields); i++ {
		f := &d.Fields[i]
		if f.Mode == SeqOf {
			var err error
			out, err = emitSeqOf(f, v, stack, out)
			if err != nil {
				return nil, err
			}
			continue
		}
		fv := v.Field(f.FieldIndex)
		eff, present := unwrapRV(fv, f)
		if !present {
			continue
		}
		var err error
		out, err = emitLeafOrNested(f, eff, stack, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func emitField(f *Field, v reflectValue, stack *lenStack, out []byte) ([]byte, error) {
	fv := v.Field(f.FieldIndex)
	eff, present := unwrapRV(fv, f)
	if !present {
		return out, nil
	}
	return emitLeafOrNested(f, eff, stack, out)
}

func emitSeqOf(f *Field, v reflectValue, stack *lenStack, out []byte) ([]byte, error) {
	fv := v.Field(f.FieldIndex)
	n := fv.Len()
	for i := 0; i < n; i++ {
		elem := fv.Index(i)
		if f.Pointed {
			elem = elem.Elem()
		}
		var err error
		out, err = emitLeafOrNested(f, elem, stack, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func emitLeafOrNested(f *Field, eff reflectValue, stack *lenStack, out []byte) ([]byte, error) {
	switch f.Type {
	case TSequence, TChoice:
		return emitDescriptor(f.Elem, f.Tag, eff, stack, out)
	case TUntaggedChoice:
		return emitFields(f.Elem, eff, stack, out)
	default:
		n := stack.next()
		b, err := leafPack(f, eff)
		if err != nil {
			return nil, err
		}
		if len(b) != n {
			return nil, status.New(status.ServerError, "asn1: %s: size/emit pass mismatch (%d != %d)", f.Name, n, len(b))
		}
		out = append(out, f.Tag)
		out = append(out, ber.PackLen(uint32(n))...)
		out = append(out, b...)
		return out, nil
	}
}
