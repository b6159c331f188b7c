package asn1

import "reflect"

// reflectValue is a local alias so pack.go/unpack.go read a bit less
// noisily; it is exactly reflect.Value.
type reflectValue = reflect.Value

// reflectValueOf returns the addressable struct value v represents,
// dereferencing one level of pointer if v is a *T.
func reflectValueOf(v any) reflectValue {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		return rv.Elem()
	}
	return rv
}

// unwrapRV is unwrap under its reflect.Value-returning name, used by the
// pack/unpack engines.
func unwrapRV(fv reflectValue, f *Field) (reflectValue, bool) { return unwrap(fv, f) }

// BitString is the carrier type for TBitString fields: the packed octets
// plus the count of unused trailing bits in the last octet, per the BER
// bit-string encoding.
type BitString struct {
	Bytes      []byte
	UnusedBits int
}

func fieldValue(parent reflect.Value, f *Field) reflect.Value {
	return parent.Field(f.FieldIndex)
}

// prepareForDecode returns the addressable storage a decoded leaf value
// should be written into, allocating the pointed-to element for the
// pointer-carrier Optional fields unwrap's read side expects (the mirror
// of unwrap for the write direction).
func prepareForDecode(fv reflectValue, f *Field) reflectValue {
	if f.Mode != Optional {
		return fv
	}
	switch f.Type {
	case TSequence, TChoice, TUntaggedChoice, TString, TBitString:
		elem := reflect.New(fv.Type().Elem())
		fv.Set(elem)
		return elem.Elem()
	default:
		return fv
	}
}

// presentOpt marks an Opt[T] carrier present and returns its Value field
// as the storage for a decoded scalar/enum leaf.
func presentOpt(fv reflectValue) reflectValue {
	fv.FieldByName("Present").SetBool(true)
	return fv.FieldByName("Value")
}

// reflectValueDirect wraps v with reflect.ValueOf with no pointer-deref
// convention applied, for storing an already-concrete decoded value
// (e.g. an OpaqueCodec.Unpack result) straight into a struct field.
func reflectValueDirect(v any) reflectValue { return reflect.ValueOf(v) }

// unwrap resolves a field's Go carrier value down to the effective value
// to encode/decode and whether it is present, per spec §4.2's per-type
// presence probe: Opt[T] for scalars/enums, a non-nil pointer for
// strings/composites/opaque-like data.
func unwrap(fv reflect.Value, f *Field) (eff reflect.Value, present bool) {
	if f.Mode != Optional {
		return fv, true
	}
	switch f.Type {
	case TSequence, TChoice, TUntaggedChoice:
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		return fv.Elem(), true
	case TString, TBitString:
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		return fv.Elem(), true
	case TOpaque, TOpenType:
		if fv.IsNil() {
			return reflect.Value{}, false
		}
		return fv, true
	default:
		// Opt[T]: struct{ Present bool; Value T }
		present := fv.FieldByName("Present").Bool()
		if !present {
			return reflect.Value{}, false
		}
		return fv.FieldByName("Value"), true
	}
}
