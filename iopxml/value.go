package iopxml

import (
	"reflect"

	"github.com/intersec-oss/iop/asn1"
)

// fieldValue returns the struct field f addresses within the carrier
// value parent, mirroring asn1/value.go's fieldValue - the same
// Descriptor/Field schema backs both codecs (spec §3: "schema descriptor
// (shared by ASN.1 and IOP)").
func fieldValue(parent reflect.Value, f *asn1.Field) reflect.Value {
	return parent.Field(f.FieldIndex)
}

// prepareForDecode returns the addressable storage an unpacked leaf
// value should be written into, allocating the pointed-to element for
// Optional fields the way asn1's unpacker does for its own carrier
// conventions (Opt[T] for scalars/enums, a pointer for strings/
// composites/opaque-like data).
func prepareForDecode(fv reflect.Value, f *asn1.Field) reflect.Value {
	if f.Mode != asn1.Optional {
		return fv
	}
	switch f.Type {
	case asn1.TSequence, asn1.TChoice, asn1.TUntaggedChoice, asn1.TString, asn1.TBitString, asn1.TOpaque:
		elem := reflect.New(fv.Type().Elem())
		fv.Set(elem)
		return elem.Elem()
	default:
		return fv
	}
}

func presentOpt(fv reflect.Value) reflect.Value {
	fv.FieldByName("Present").SetBool(true)
	return fv.FieldByName("Value")
}

// unwrap resolves a field's Go carrier value down to the effective value
// to encode and whether it is present - same presence probe asn1 uses,
// duplicated here rather than exported from asn1 since the two engines
// otherwise share no call path and asn1 keeps it package-private.
func unwrap(fv reflect.Value, f *asn1.Field) (eff reflect.Value, present bool) {
	if f.Mode != asn1.Optional {
		return fv, true
	}
	switch f.Type {
	case asn1.TSequence, asn1.TChoice, asn1.TUntaggedChoice, asn1.TString, asn1.TBitString:
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		return fv.Elem(), true
	case asn1.TOpaque, asn1.TOpenType:
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		return fv, true
	default:
		present = fv.FieldByName("Present").Bool()
		if !present {
			return reflect.Value{}, false
		}
		return fv.FieldByName("Value"), true
	}
}

// leafStorage returns where a decoded scalar/string/bitstring/opaque/
// open-type value should be written, resolving the Opt[T]/pointer/plain
// carrier convention unwrap uses on the write side - the non-composite
// half of asn1/unpack.go's leafStorage, duplicated here for the same
// reason unwrap is.
func leafStorage(f *asn1.Field, fv reflect.Value) reflect.Value {
	if f.Mode != asn1.Optional {
		return fv
	}
	switch f.Type {
	case asn1.TString, asn1.TBitString:
		return prepareForDecode(fv, f)
	case asn1.TOpaque, asn1.TOpenType:
		return fv
	default:
		return presentOpt(fv)
	}
}

// storageFor dispatches to prepareForDecode for composite fields and
// leafStorage for everything else, so callers don't need to know which
// bucket f.Type falls into.
func storageFor(f *asn1.Field, fv reflect.Value) reflect.Value {
	switch f.Type {
	case asn1.TSequence, asn1.TChoice, asn1.TUntaggedChoice:
		return prepareForDecode(fv, f)
	default:
		return leafStorage(f, fv)
	}
}

func reflectValueOf(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.Elem()
	}
	return rv
}
